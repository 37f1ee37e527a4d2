package contract

// ITabStore is the per-tab ephemeral key/value store. It lives exactly as
// long as the agent process, which is the Go analogue of a browser tab's
// sessionStorage.
type ITabStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

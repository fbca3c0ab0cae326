package models

// Attachment references a file held in the object store. The storage key is
// the handle used to delete the remote object; a record must never persist
// one field without the other.
type Attachment struct {
	URL        string `json:"url"`
	StorageKey string `json:"storage_key"`
}

func (a Attachment) Present() bool {
	return a.StorageKey != ""
}

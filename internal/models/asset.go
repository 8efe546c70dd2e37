package models

// AssetSlot names a user-owned remote asset position.
type AssetSlot string

const (
	SlotAvatar AssetSlot = "avatar"
	SlotCover  AssetSlot = "cover"
)

// AssetRef points at an object in the remote store.
// RemoteID is the store key needed to delete the object later;
// the cover slot historically kept only the URL.
type AssetRef struct {
	URL      string
	RemoteID string
}

func (r AssetRef) Empty() bool {
	return r.URL == "" && r.RemoteID == ""
}

// StagedFile is a file already written to local transient storage by the
// upload-receiving layer, awaiting upload to the remote store. The asset
// service guarantees Path is removed exactly once whatever the outcome.
type StagedFile struct {
	Path string
	Slot AssetSlot
}

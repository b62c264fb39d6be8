package storage

import "sync"

// ClosedInfoKey records that the informational banner was dismissed
const ClosedInfoKey = "closedInfo"

// Banner tracks the dismissal of the informational banner.
// The flag is read once when the banner is created and written once on dismissal.
type Banner struct {
	mu        sync.Mutex
	store     *Store
	dismissed bool
}

// LoadBanner reads the dismissal flag from the store
func LoadBanner(store *Store) (*Banner, error) {
	value, _, err := store.Setting(ClosedInfoKey)
	if err != nil {
		return nil, err
	}
	return &Banner{store: store, dismissed: value == "true"}, nil
}

// Visible reports whether the banner should still be shown
func (b *Banner) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.dismissed
}

// Dismiss hides the banner for this and future sessions
func (b *Banner) Dismiss() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dismissed {
		return nil
	}
	if err := b.store.SetSetting(ClosedInfoKey, "true"); err != nil {
		return err
	}
	b.dismissed = true
	return nil
}

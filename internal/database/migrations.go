package database

import "fmt"

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate kv_entries: %w", err)
	}

	// Purges scan by expiry
	err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_kv_entries_expires_at
		ON kv_entries(expires_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}

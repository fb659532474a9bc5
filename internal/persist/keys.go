package persist

import "github.com/MrSnakeDoc/dashsync/internal/domain"

const (
	// SnapshotKey holds the combined disaster-recovery snapshot.
	SnapshotKey = "dashboardFullBackup"

	ThemeKey = "theme"
	FontKey  = "font"

	SyncEnabledKey  = "cloud_sync_enabled"
	SyncProviderKey = "cloud_provider"
	LastSyncKey     = "last_sync"
	RemoteFileKey   = "remote_file_id"
)

// PrimaryKey returns the key holding the serialized collection.
func PrimaryKey(kind domain.Kind) string { return string(kind) }

// BackupKey returns the key of the shadow copy written next to the primary.
func BackupKey(kind domain.Kind) string { return string(kind) + "Backup" }

// TimestampKey returns the key holding the time of the last successful write.
func TimestampKey(kind domain.Kind) string { return string(kind) + "Timestamp" }

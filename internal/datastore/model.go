// Package datastore persists the entities of §3: File, Passage, Song,
// QueueEntry, ImportSession, and Setting, behind a dual-dialect gorm store
// (sqlite for a single-box deployment, mysql for a shared one).
package datastore

import "time"

// FileStatus is File.status (§3).
type FileStatus string

const (
	FilePending         FileStatus = "PENDING"
	FileProcessing       FileStatus = "PROCESSING"
	FileIngestComplete   FileStatus = "INGEST_COMPLETE"
	FileFailed           FileStatus = "FAILED"
)

// File is a scanned audio file under the library root. Path is stored
// root-relative with forward slashes (§6.5); only joined with the root at
// I/O time.
type File struct {
	ID         int64      `gorm:"primaryKey"`
	Path       string     `gorm:"uniqueIndex;size:1024;not null"`
	ContentHash string    `gorm:"uniqueIndex;size:64"`
	DurationTicks int64   `gorm:"not null"`
	Format     string     `gorm:"size:16"`
	SampleRate int
	Channels   int
	ByteSize   int64
	Status     FileStatus `gorm:"size:20;index;not null;default:PENDING"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Passages []Passage `gorm:"constraint:OnDelete:CASCADE"`
}

// Passage is a playable region of a File, with its own fade envelope (§4.2)
// and an optional link to the Song it was fused into.
type Passage struct {
	ID         int64 `gorm:"primaryKey"`
	FileID     int64 `gorm:"index;not null"`
	File       File

	StartTicks    int64 `gorm:"not null"`
	EndTicks      int64 `gorm:"not null"`
	FadeInStart   *int64
	LeadInStart   *int64
	LeadOutStart  *int64
	FadeOutStart  *int64
	FadeInCurve   string `gorm:"size:16;default:linear"`
	FadeOutCurve  string `gorm:"size:16;default:linear"`

	Title  string `gorm:"size:512"`
	Artist string `gorm:"size:512"`
	Album  string `gorm:"size:512"`

	FlavorVector string `gorm:"type:text"` // JSON-encoded flavor vector (Core B fusion output)
	Status       string `gorm:"size:20;index"`

	SongID *int64 `gorm:"index"`
	Song   *Song

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SongStatus is Song.status; FLAVOR_READY is required before the program
// director will select the song for play (§3).
type SongStatus string

const (
	SongPending      SongStatus = "PENDING"
	SongFlavorReady  SongStatus = "FLAVOR_READY"
	SongFailed       SongStatus = "FAILED"
)

// Song is the fusion output identified across one or more Passages sharing
// a MusicBrainz recording ID.
type Song struct {
	ID               int64      `gorm:"primaryKey"`
	MBID             string     `gorm:"uniqueIndex;size:36"`
	Title            string     `gorm:"size:512"`
	FlavorVector     string     `gorm:"type:text"`
	BaseProbability  float64    `gorm:"default:1.0"`
	CooldownUntil    *time.Time
	LastPlayedAt     *time.Time
	Status           SongStatus `gorm:"size:20;index;default:PENDING"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QueueEntry is one row of the ordered playback queue (§3, §4.9). Timing
// override fields are nullable: null defers to the joined Passage's
// defaults, which in turn defer to system defaults resolved at read time
// (see the Open Question decision recorded in DESIGN.md).
type QueueEntry struct {
	ID        int64  `gorm:"primaryKey"`
	FilePath  string `gorm:"size:1024;not null"`
	PassageID *int64 `gorm:"index"`
	PlayOrder int64  `gorm:"uniqueIndex;not null"`

	OverrideStart        *int64
	OverrideEnd          *int64
	OverrideLeadIn       *int64
	OverrideLeadOut      *int64
	OverrideFadeIn       *int64
	OverrideFadeOut      *int64
	OverrideFadeInCurve  *string `gorm:"size:16"`
	OverrideFadeOutCurve *string `gorm:"size:16"`

	CreatedAt time.Time
}

// ImportSessionState is ImportSession.state (§4.10).
type ImportSessionState string

const (
	ImportScanning   ImportSessionState = "SCANNING"
	ImportProcessing ImportSessionState = "PROCESSING"
	ImportCompleted  ImportSessionState = "COMPLETED"
	ImportFailed     ImportSessionState = "FAILED"
	ImportCancelled  ImportSessionState = "CANCELLED"
)

// ImportSession is one run of the import orchestrator.
type ImportSession struct {
	ID         int64              `gorm:"primaryKey"`
	RootFolder string             `gorm:"size:1024;not null"`
	Params     string             `gorm:"type:text"` // JSON-encoded request parameters
	State      ImportSessionState `gorm:"size:20;index;not null"`

	ProgressCurrent int
	ProgressTotal   int
	ProgressOp      string `gorm:"size:64"`
	Errors          string `gorm:"type:text"` // JSON-encoded []string

	StartedAt time.Time
	EndedAt   *time.Time
}

// Setting is one key/value row of the §6.2 parameter registry.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:256"`
}

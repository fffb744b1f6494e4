package datastore

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}

// SaveSession upserts an ImportSession by ID (zero ID inserts a new row).
func (s *Store) SaveSession(ctx context.Context, session *ImportSession) error {
	return withRetry(ctx, 3, func() error {
		return dbError(s.DB.WithContext(ctx).Save(session).Error, "save-session")
	})
}

// LoadSession fetches one ImportSession by ID.
func (s *Store) LoadSession(ctx context.Context, id int64) (*ImportSession, error) {
	var session ImportSession
	if err := s.DB.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, dbError(err, "load-session")
	}
	return &session, nil
}

// StaleSessions returns every non-terminal ImportSession, for cleanup at
// process startup (a session left SCANNING/PROCESSING across a restart has
// no worker pool left to finish it).
func (s *Store) StaleSessions(ctx context.Context) ([]ImportSession, error) {
	var sessions []ImportSession
	err := s.DB.WithContext(ctx).
		Where("state IN ?", []ImportSessionState{ImportScanning, ImportProcessing}).
		Find(&sessions).Error
	if err != nil {
		return nil, dbError(err, "stale-sessions")
	}
	return sessions, nil
}

// CreateFiles batch-inserts newly discovered File rows, ignoring rows whose
// path already exists (a rescan of an already-known tree).
func (s *Store) CreateFiles(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}
	return withRetry(ctx, 3, func() error {
		return dbError(
			s.DB.WithContext(ctx).Clauses(onConflictDoNothing()).CreateInBatches(files, 200).Error,
			"create-files-batch",
		)
	})
}

// PendingFiles returns every File row not yet fully ingested, for Phase 2's
// per-file worker pool to consume.
func (s *Store) PendingFiles(ctx context.Context) ([]File, error) {
	var files []File
	err := s.DB.WithContext(ctx).
		Where("status != ?", FileIngestComplete).
		Find(&files).Error
	if err != nil {
		return nil, dbError(err, "pending-files")
	}
	return files, nil
}

// SaveFile upserts a File row by ID.
func (s *Store) SaveFile(ctx context.Context, file *File) error {
	return withRetry(ctx, 3, func() error {
		return dbError(s.DB.WithContext(ctx).Save(file).Error, "save-file")
	})
}

// SavePassage upserts a Passage row by ID.
func (s *Store) SavePassage(ctx context.Context, passage *Passage) error {
	return withRetry(ctx, 3, func() error {
		return dbError(s.DB.WithContext(ctx).Save(passage).Error, "save-passage")
	})
}

// PassagesForFile returns every Passage belonging to fileID.
func (s *Store) PassagesForFile(ctx context.Context, fileID int64) ([]Passage, error) {
	var passages []Passage
	if err := s.DB.WithContext(ctx).Where("file_id = ?", fileID).Find(&passages).Error; err != nil {
		return nil, dbError(err, "passages-for-file")
	}
	return passages, nil
}

// UpsertSongByMBID finds a Song by MusicBrainz recording ID, creating it if
// absent, and returns the row with its ID populated.
func (s *Store) UpsertSongByMBID(ctx context.Context, mbid string, title, flavorVector string, status SongStatus) (*Song, error) {
	var song Song
	err := withRetry(ctx, 3, func() error {
		result := s.DB.WithContext(ctx).Where("mbid = ?", mbid).First(&song)
		if result.Error == nil {
			song.Title = title
			song.FlavorVector = flavorVector
			song.Status = status
			return dbError(s.DB.WithContext(ctx).Save(&song).Error, "update-song")
		}
		song = Song{MBID: mbid, Title: title, FlavorVector: flavorVector, Status: status, BaseProbability: 1.0}
		return dbError(s.DB.WithContext(ctx).Create(&song).Error, "create-song")
	})
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// NowUTC is the shared timestamp source for import bookkeeping, isolated
// behind a function so pipeline tests can stub it.
var NowUTC = func() time.Time { return time.Now().UTC() }

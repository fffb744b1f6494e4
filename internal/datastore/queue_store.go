package datastore

import (
	"context"

	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/playback/engine"
	"github.com/mangocats/wkmp/internal/ticks"
)

// LoadQueue implements engine.Store. It reconstructs each engine.QueueEntry
// together with the passage defaults and file duration its timing
// resolution needs (§4.9), via separate lookups of its Passage row and that
// passage's File row.
func (s *Store) LoadQueue() ([]engine.QueueEntry, error) {
	var rows []QueueEntry
	if err := s.DB.Order("play_order asc").Find(&rows).Error; err != nil {
		return nil, dbError(err, "load-queue")
	}

	out := make([]engine.QueueEntry, 0, len(rows))
	for _, row := range rows {
		entry := engine.QueueEntry{
			ID:        row.ID,
			FilePath:  row.FilePath,
			PassageID: row.PassageID,
			PlayOrder: row.PlayOrder,
			Override:  overrideFromRow(row),
		}

		if row.PassageID != nil {
			var passage Passage
			if err := s.DB.First(&passage, *row.PassageID).Error; err == nil {
				entry.PassageDefault = passageDefaultsFromRow(passage)
				entry.FileDuration = ticks.Tick(passage.EndTicks)

				var file File
				if err := s.DB.First(&file, passage.FileID).Error; err == nil {
					entry.FileDuration = ticks.Tick(file.DurationTicks)
				}
			}
		}

		out = append(out, entry)
	}
	return out, nil
}

// SaveQueueEntry implements engine.Store, upserting by ID.
func (s *Store) SaveQueueEntry(e engine.QueueEntry) error {
	row := rowFromEntry(e)
	return withRetry(context.Background(), 3, func() error {
		return dbError(s.DB.Save(&row).Error, "save-queue-entry")
	})
}

// DeleteQueueEntry implements engine.Store.
func (s *Store) DeleteQueueEntry(id int64) error {
	return withRetry(context.Background(), 3, func() error {
		return dbError(s.DB.Delete(&QueueEntry{}, id).Error, "delete-queue-entry")
	})
}

func tickPtr(t *ticks.Tick) *int64 {
	if t == nil {
		return nil
	}
	v := int64(*t)
	return &v
}

func int64ToTickPtr(v *int64) *ticks.Tick {
	if v == nil {
		return nil
	}
	t := ticks.Tick(*v)
	return &t
}

func curvePtr(c *fader.Curve) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func curveFromPtr(s *string) *fader.Curve {
	if s == nil {
		return nil
	}
	c := fader.ParseCurve(*s)
	return &c
}

func rowFromEntry(e engine.QueueEntry) QueueEntry {
	return QueueEntry{
		ID:                   e.ID,
		FilePath:             e.FilePath,
		PassageID:            e.PassageID,
		PlayOrder:            e.PlayOrder,
		OverrideStart:        tickPtr(e.Override.Start),
		OverrideEnd:          tickPtr(e.Override.End),
		OverrideLeadIn:       tickPtr(e.Override.LeadIn),
		OverrideLeadOut:      tickPtr(e.Override.LeadOut),
		OverrideFadeIn:       tickPtr(e.Override.FadeIn),
		OverrideFadeOut:      tickPtr(e.Override.FadeOut),
		OverrideFadeInCurve:  curvePtr(e.Override.FadeInCurve),
		OverrideFadeOutCurve: curvePtr(e.Override.FadeOutCurve),
	}
}

func overrideFromRow(row QueueEntry) engine.TimingOverride {
	return engine.TimingOverride{
		Start:        int64ToTickPtr(row.OverrideStart),
		End:          int64ToTickPtr(row.OverrideEnd),
		LeadIn:       int64ToTickPtr(row.OverrideLeadIn),
		LeadOut:      int64ToTickPtr(row.OverrideLeadOut),
		FadeIn:       int64ToTickPtr(row.OverrideFadeIn),
		FadeOut:      int64ToTickPtr(row.OverrideFadeOut),
		FadeInCurve:  curveFromPtr(row.OverrideFadeInCurve),
		FadeOutCurve: curveFromPtr(row.OverrideFadeOutCurve),
	}
}

func passageDefaultsFromRow(p Passage) engine.TimingOverride {
	start := ticks.Tick(p.StartTicks)
	end := ticks.Tick(p.EndTicks)
	fadeInCurve := fader.ParseCurve(p.FadeInCurve)
	fadeOutCurve := fader.ParseCurve(p.FadeOutCurve)

	return engine.TimingOverride{
		Start:        &start,
		End:          &end,
		LeadIn:       int64ToTickPtr(p.LeadInStart),
		LeadOut:      int64ToTickPtr(p.LeadOutStart),
		FadeIn:       int64ToTickPtr(p.FadeInStart),
		FadeOut:      int64ToTickPtr(p.FadeOutStart),
		FadeInCurve:  &fadeInCurve,
		FadeOutCurve: &fadeOutCurve,
	}
}

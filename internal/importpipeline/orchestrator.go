package importpipeline

import (
	"context"
	"sync"
	"time"

	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/logging"
)

var orchestratorLog = logging.ForService("importpipeline.orchestrator")

// WorkflowOrchestrator drives one ImportSession through SCANNING →
// PROCESSING → {COMPLETED|FAILED|CANCELLED} (§4.10). PROCESSING runs a
// bounded pool of N workers, each taking files independently through
// phases 2-10 — no phase is ever batched across files.
type WorkflowOrchestrator struct {
	Store    *datastore.Store
	Bus      *eventbus.Bus
	Settings *conf.Settings

	mu        sync.Mutex
	cancelFns map[int64]context.CancelFunc
}

// NewWorkflowOrchestrator builds an orchestrator bound to store/bus/settings.
func NewWorkflowOrchestrator(store *datastore.Store, bus *eventbus.Bus, settings *conf.Settings) *WorkflowOrchestrator {
	return &WorkflowOrchestrator{
		Store:     store,
		Bus:       bus,
		Settings:  settings,
		cancelFns: make(map[int64]context.CancelFunc),
	}
}

// RecoverStaleSessions marks any session left SCANNING/PROCESSING from a
// prior process lifetime as FAILED, since its worker pool no longer exists
// to finish it (§4.10's session table has no "resume" transition).
func (o *WorkflowOrchestrator) RecoverStaleSessions(ctx context.Context) error {
	stale, err := o.Store.StaleSessions(ctx)
	if err != nil {
		return err
	}
	for i := range stale {
		stale[i].State = datastore.ImportFailed
		stale[i].ProgressOp = "orphaned by process restart"
		now := time.Now().UTC()
		stale[i].EndedAt = &now
		if err := o.Store.SaveSession(ctx, &stale[i]); err != nil {
			return err
		}
		orchestratorLog.Warn("recovered stale import session", "session_id", stale[i].ID)
	}
	return nil
}

// Start runs a full import session against rootFolder to completion. The
// returned session reflects the terminal state; ctx cancellation (or a
// matching Cancel call) transitions the session to CANCELLED and drains
// in-flight workers rather than aborting them mid-file.
func (o *WorkflowOrchestrator) Start(ctx context.Context, rootFolder string) (*datastore.ImportSession, error) {
	session, sessionCtx, cancel, err := o.beginSession(context.Background(), ctx, rootFolder)
	if err != nil {
		return nil, err
	}
	defer cancel()
	o.run(context.Background(), sessionCtx, session, rootFolder)
	return session, nil
}

// StartAsync persists a new session and returns it immediately, running
// SCANNING/PROCESSING on a background goroutine — the shape the HTTP
// control surface needs for POST /import/start to respond before the
// import itself finishes (§6.3). The session's working context derives
// from context.Background(), not the request context: the request ends
// when the handler returns, well before the import does.
func (o *WorkflowOrchestrator) StartAsync(ctx context.Context, rootFolder string) (*datastore.ImportSession, error) {
	session, sessionCtx, cancel, err := o.beginSession(ctx, context.Background(), rootFolder)
	if err != nil {
		return nil, err
	}
	go func() {
		defer cancel()
		o.run(context.Background(), sessionCtx, session, rootFolder)
	}()
	return session, nil
}

func (o *WorkflowOrchestrator) beginSession(saveCtx, workCtx context.Context, rootFolder string) (*datastore.ImportSession, context.Context, context.CancelFunc, error) {
	sessionCtx, cancel := context.WithCancel(workCtx)

	session := &datastore.ImportSession{
		RootFolder: rootFolder,
		State:      datastore.ImportScanning,
		StartedAt:  time.Now().UTC(),
	}
	if err := o.Store.SaveSession(saveCtx, session); err != nil {
		cancel()
		return nil, nil, nil, err
	}

	o.mu.Lock()
	o.cancelFns[session.ID] = cancel
	o.mu.Unlock()

	return session, sessionCtx, cancel, nil
}

// run drives session through SCANNING/PROCESSING to a terminal state.
// parentCtx is used only for persistence calls after sessionCtx has been
// cancelled, so a cancelled/timed-out caller context never blocks the
// session's own terminal-state save.
func (o *WorkflowOrchestrator) run(parentCtx context.Context, sessionCtx context.Context, session *datastore.ImportSession, rootFolder string) {
	defer func() {
		o.mu.Lock()
		delete(o.cancelFns, session.ID)
		o.mu.Unlock()
	}()

	if err := o.runScanning(sessionCtx, session, rootFolder); err != nil {
		if sessionCtx.Err() != nil {
			_ = o.cancelSession(parentCtx, session)
			return
		}
		o.finishSession(parentCtx, session, datastore.ImportFailed, err.Error())
		return
	}
	if session.State == datastore.ImportCancelled {
		return
	}

	if err := o.runProcessing(sessionCtx, session, rootFolder); err != nil {
		if sessionCtx.Err() != nil {
			_ = o.cancelSession(parentCtx, session)
			return
		}
		o.finishSession(parentCtx, session, datastore.ImportFailed, err.Error())
		return
	}
	if session.State == datastore.ImportCancelled {
		return
	}

	o.finishSession(parentCtx, session, datastore.ImportCompleted, "")
}

// Cancel signals the running session identified by sessionID to stop after
// its current in-flight files finish.
func (o *WorkflowOrchestrator) Cancel(sessionID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.cancelFns[sessionID]
	if !ok {
		return false
	}
	cancel()
	return true
}

func (o *WorkflowOrchestrator) runScanning(ctx context.Context, session *datastore.ImportSession, rootFolder string) error {
	session.State = datastore.ImportScanning
	session.ProgressOp = "scanning for audio files"
	if err := o.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	o.broadcast(session)

	discovered, err := scanLibrary(ctx, rootFolder, func(n int) {
		session.ProgressCurrent = n
		o.broadcast(session)
	})
	if err != nil {
		if ctx.Err() != nil {
			return o.cancelSession(ctx, session)
		}
		return err
	}

	files := make([]datastore.File, 0, len(discovered))
	for _, d := range discovered {
		files = append(files, datastore.File{
			Path:      d.relPath,
			ByteSize:  d.size,
			Status:    datastore.FilePending,
			CreatedAt: d.modTime,
		})
	}
	if err := o.Store.CreateFiles(ctx, files); err != nil {
		return err
	}

	session.ProgressCurrent = len(files)
	session.ProgressTotal = len(files)
	session.ProgressOp = "scan complete"
	if err := o.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	o.broadcast(session)
	return nil
}

func (o *WorkflowOrchestrator) runProcessing(ctx context.Context, session *datastore.ImportSession, rootFolder string) error {
	session.State = datastore.ImportProcessing
	session.ProgressCurrent = 0
	session.ProgressOp = "processing files"
	if err := o.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	o.broadcast(session)

	pending, err := o.Store.PendingFiles(ctx)
	if err != nil {
		return err
	}
	session.ProgressTotal = len(pending)

	numWorkers := o.Settings.Import.MaxConcurrentFiles
	if numWorkers <= 0 {
		numWorkers = 1
	}

	processor := NewFileProcessor(o.Store, o.Settings, rootFolder)

	jobs := make(chan datastore.File)
	results := make(chan FileResult)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				start := time.Now()
				err := processor.Process(ctx, file)
				results <- FileResult{FileID: file.ID, Path: file.Path, Succeeded: err == nil, Err: err, Elapsed: time.Since(start)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, file := range pending {
			select {
			case jobs <- file:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var errorsSeen []string
	for result := range results {
		session.ProgressCurrent++
		if !result.Succeeded && result.Err != nil {
			errorsSeen = append(errorsSeen, result.Path+": "+result.Err.Error())
			orchestratorLog.Warn("file processing failed", "path", result.Path, "error", result.Err)
		}
		o.broadcast(session)
	}

	if ctx.Err() != nil {
		return o.cancelSession(ctx, session)
	}

	if len(errorsSeen) > 0 {
		session.Errors = marshalErrors(errorsSeen)
	}
	return o.Store.SaveSession(ctx, session)
}

func (o *WorkflowOrchestrator) cancelSession(ctx context.Context, session *datastore.ImportSession) error {
	session.State = datastore.ImportCancelled
	session.ProgressOp = "cancelled"
	now := time.Now().UTC()
	session.EndedAt = &now
	// Use context.Background(): sessionCtx is already done, so the save
	// itself must not be cancelled along with it.
	if err := o.Store.SaveSession(context.Background(), session); err != nil {
		return err
	}
	o.broadcast(session)
	return nil
}

func (o *WorkflowOrchestrator) finishSession(ctx context.Context, session *datastore.ImportSession, state datastore.ImportSessionState, errMsg string) (*datastore.ImportSession, error) {
	session.State = state
	now := time.Now().UTC()
	session.EndedAt = &now
	if errMsg != "" {
		session.Errors = marshalErrors([]string{errMsg})
	}
	if err := o.Store.SaveSession(ctx, session); err != nil {
		return session, err
	}
	o.broadcast(session)
	if state == datastore.ImportFailed {
		orchestratorLog.Error("import session failed", "session_id", session.ID, "error", errMsg)
	}
	return session, nil
}

func (o *WorkflowOrchestrator) broadcast(session *datastore.ImportSession) {
	if o.Bus == nil {
		return
	}
	o.Bus.Publish("ImportProgress", ProgressEvent{
		SessionID: session.ID,
		State:     string(session.State),
		Current:   session.ProgressCurrent,
		Total:     session.ProgressTotal,
		Operation: session.ProgressOp,
	})
}

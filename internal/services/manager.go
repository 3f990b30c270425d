package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/models"
	"deepfake-detector/internal/repository"
	"deepfake-detector/internal/services/ai"
	"deepfake-detector/internal/services/storage"
	"deepfake-detector/internal/services/websocket"
)

// Origins recorded with each detection.
const (
	OriginUpload   = "upload"
	OriginURL      = "url"
	OriginMulti    = "multi"
	OriginTelegram = "telegram"
	OriginReindex  = "reindex"
)

// ErrStopped is returned once the manager has been stopped.
var ErrStopped = errors.New("manager stopped")

// Classifier is the detection pipeline as seen by the service layer.
type Classifier interface {
	Classify(ref ai.ImageRef) ai.Outcome
}

// Manager owns the classification worker pool and everything that happens
// around a classification: storing the upload, recording the result and
// pushing it to live viewers.
type Manager struct {
	classifier       Classifier
	uploadStore      *storage.UploadStore
	repo             repository.DetectionRepository
	websocketService *websocket.HubService
	logger           *logger.Logger

	processingQueue chan classifyTask
	numWorkers      int

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type classifyTask struct {
	ref   ai.ImageRef
	reply chan ai.Outcome
}

// Upload is one image received by a frontend.
type Upload struct {
	Data         []byte
	Ext          string
	OriginalName string
	Origin       string
	Prefix       string // prepended to the stored file name
}

// Result is the outcome of Detect.
type Result struct {
	Outcome   ai.Outcome
	File      storage.StoredFile
	Detection *models.Detection // nil when the record could not be written
}

func NewManager(classifier Classifier, uploadStore *storage.UploadStore, repo repository.DetectionRepository, websocketService *websocket.HubService, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		classifier:       classifier,
		uploadStore:      uploadStore,
		repo:             repo,
		websocketService: websocketService,
		numWorkers:       config.ProcessingWorkers,     // Liczba workerów do klasyfikacji
		processingQueue:  make(chan classifyTask, 100), // Buffer dla 100 zadań
		done:             make(chan struct{}),
		logger:           logger,
	}
	if manager.numWorkers < 1 {
		manager.numWorkers = 1
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("🎬 Manager started with %d worker(s)", manager.numWorkers)
	return manager
}

func (m *Manager) GetUploadStore() *storage.UploadStore {
	return m.uploadStore
}

func (m *Manager) GetRepository() repository.DetectionRepository {
	return m.repo
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// Classify runs one image through the worker pool and waits for the outcome.
func (m *Manager) Classify(ctx context.Context, ref ai.ImageRef) (ai.Outcome, error) {
	select {
	case <-m.done:
		return ai.Outcome{}, ErrStopped
	default:
	}

	task := classifyTask{ref: ref, reply: make(chan ai.Outcome, 1)}
	select {
	case m.processingQueue <- task:
	case <-m.done:
		return ai.Outcome{}, ErrStopped
	case <-ctx.Done():
		return ai.Outcome{}, ctx.Err()
	}

	select {
	case out := <-task.reply:
		return out, nil
	case <-m.done:
		return ai.Outcome{}, ErrStopped
	case <-ctx.Done():
		return ai.Outcome{}, ctx.Err()
	}
}

// Detect stores the upload, classifies it, records the result and notifies
// live viewers. An empty upload is not stored; it classifies as Error.
func (m *Manager) Detect(ctx context.Context, upload Upload) (*Result, error) {
	if len(upload.Data) == 0 {
		outcome, err := m.Classify(ctx, emptyRef(upload))
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: outcome}, nil
	}

	file, err := m.uploadStore.Save(upload.Data, upload.Ext, upload.Prefix)
	if err != nil {
		return nil, err
	}

	outcome, err := m.Classify(ctx, ai.ImageRef{Path: file.Path, Name: upload.OriginalName})
	if err != nil {
		m.removeQuietly(file.Name)
		return nil, err
	}

	result := &Result{Outcome: outcome, File: file}
	result.Detection = m.record(ctx, outcome, file, upload)
	m.publish(result, upload.Origin)
	return result, nil
}

// BatchItem is one entry of DetectBatch.
type BatchItem struct {
	Upload  Upload
	Outcome ai.Outcome
	File    storage.StoredFile
	Removed bool  // file deleted after classification
	Err     error // storage or queue failure; Outcome is then Error
}

// DetectBatch classifies uploads concurrently through the worker pool. With
// cleanup the files are deleted afterwards and nothing is recorded.
func (m *Manager) DetectBatch(ctx context.Context, uploads []Upload, cleanup bool) []BatchItem {
	items := make([]BatchItem, len(uploads))
	var wg sync.WaitGroup

	for i := range uploads {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i] = m.detectOne(ctx, uploads[i], cleanup)
		}(i)
	}
	wg.Wait()
	return items
}

func (m *Manager) detectOne(ctx context.Context, upload Upload, cleanup bool) BatchItem {
	item := BatchItem{Upload: upload, Outcome: ai.Outcome{Label: ai.LabelError, Source: upload.OriginalName}}

	if len(upload.Data) == 0 {
		outcome, err := m.Classify(ctx, emptyRef(upload))
		if err != nil {
			item.Err = err
			return item
		}
		item.Outcome = outcome
		return item
	}

	file, err := m.uploadStore.Save(upload.Data, upload.Ext, upload.Prefix)
	if err != nil {
		item.Err = err
		return item
	}
	item.File = file

	outcome, err := m.Classify(ctx, ai.ImageRef{Path: file.Path, Name: upload.OriginalName})
	if err != nil {
		item.Err = err
		m.removeQuietly(file.Name)
		item.Removed = true
		return item
	}
	item.Outcome = outcome

	if cleanup {
		if err := m.uploadStore.Remove(file.Name); err != nil {
			m.logger.Warning("[multi] Failed to delete %s: %v", file.Name, err)
		} else {
			item.Removed = true
		}
		return item
	}

	result := &Result{Outcome: outcome, File: file}
	result.Detection = m.record(ctx, outcome, file, upload)
	m.publish(result, upload.Origin)
	return item
}

// emptyRef hands a zero-byte upload to the classifier, whose decoder
// rejects it.
func emptyRef(upload Upload) ai.ImageRef {
	return ai.ImageRef{Data: []byte{}, Name: upload.OriginalName}
}

// Delete removes a recorded detection and its file.
func (m *Manager) Delete(ctx context.Context, id int64) (*models.Detection, error) {
	det, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.uploadStore.Remove(det.Filename); err != nil {
		m.logger.Error("Failed to delete file %s: %v", det.Filename, err)
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	m.logger.Info("Deleted detection %d (%s)", id, det.Filename)
	return det, nil
}

// Clear removes every detection and stored upload.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.repo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.uploadStore.Clear(); err != nil {
		return err
	}
	m.logger.Info("All detections cleared from %s", m.uploadStore.Dir())
	return nil
}

// processingWorker przetwarza obrazy w osobnym wątku
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)

	for {
		select {
		case task := <-m.processingQueue:
			task.reply <- m.classifier.Classify(task.ref)
		case <-m.done:
			m.logger.Info("🔧 Processing worker %d stopped", workerID)
			return
		}
	}
}

func (m *Manager) record(ctx context.Context, outcome ai.Outcome, file storage.StoredFile, upload Upload) *models.Detection {
	if m.repo == nil {
		return nil
	}
	det := &models.Detection{
		Filename:     file.Name,
		OriginalName: upload.OriginalName,
		Origin:       upload.Origin,
		Label:        string(outcome.Label),
		Score:        RoundScore(outcome.Confidence),
		FilePath:     file.Path,
		FileSize:     file.Size,
		CreatedAt:    time.Now(),
	}
	if _, err := m.repo.Insert(ctx, det); err != nil {
		m.logger.Error("Failed to record detection for %s: %v", file.Name, err)
		return nil
	}
	return det
}

func (m *Manager) publish(result *Result, origin string) {
	if m.websocketService == nil {
		return
	}
	event := websocket.Event{
		Label:      string(result.Outcome.Label),
		Score:      RoundScore(result.Outcome.Confidence),
		Origin:     origin,
		Source:     result.Outcome.Source,
		Time:       time.Now(),
	}
	if result.File.Name != "" {
		event.PreviewURL = result.File.URL()
	}
	if result.Detection != nil {
		event.ID = result.Detection.ID
	}
	m.websocketService.Publish(event)
}

func (m *Manager) removeQuietly(name string) {
	if err := m.uploadStore.Remove(name); err != nil {
		m.logger.Warning("Failed to remove %s: %v", name, err)
	}
}

// Stop zatrzymuje wszystkie workery
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		m.logger.Info("🛑 All processing workers stopped")
	})
}

// RoundScore rounds a confidence to 4 decimal places for reporting.
func RoundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

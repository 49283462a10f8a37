package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/interviewrag/internal/extract"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// FileWriter persists generated question sets.
type FileWriter interface {
	WriteFile(filename string, data []byte) error
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// DefaultFileWriter implements FileWriter using os, creating parent
// directories as needed.
type DefaultFileWriter struct{}

func (d *DefaultFileWriter) WriteFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// Interviewer is the part of the RAG engine a batch run drives.
type Interviewer interface {
	Index(ctx context.Context, sessionID, text string) (int, error)
	TechnicalQuestions(ctx context.Context, sessionID, role string, countRole, countResume int) ([]string, error)
	HRQuestions(ctx context.Context, sessionID string, count int) ([]string, error)
}

// Options controls question generation for every resume.
type Options struct {
	Role        string
	CountRole   int
	CountResume int
	CountHR     int
	Workers     int
	OutputDir   string
}

// QuestionSet is the JSON document written per resume.
type QuestionSet struct {
	SessionID     string    `json:"session_id"`
	Source        string    `json:"source"`
	Role          string    `json:"role"`
	ChunksIndexed int       `json:"chunks_indexed"`
	Technical     []string  `json:"technical_questions"`
	HR            []string  `json:"hr_questions"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Summary reports the outcome of a run.
type Summary struct {
	Processed int
	Failed    int
}

// Runner generates interview question sets for a directory of resumes.
type Runner struct {
	Engine     Interviewer
	Root       string
	Options    Options
	Walker     FileSystemWalker
	FileReader FileReader
	FileWriter FileWriter
	// Forget, when set, releases a session's index once its set is written.
	Forget func(sessionID string)
	NewID  func() string
}

// New creates a Runner backed by the real filesystem.
func New(engine Interviewer, root string, opts Options) *Runner {
	return NewWithDependencies(engine, root, opts, &DefaultFileSystemWalker{}, &DefaultFileReader{}, &DefaultFileWriter{})
}

// NewWithDependencies creates a Runner with custom dependencies for testing
func NewWithDependencies(engine Interviewer, root string, opts Options, walker FileSystemWalker, reader FileReader, writer FileWriter) *Runner {
	return &Runner{
		Engine:     engine,
		Root:       root,
		Options:    opts,
		Walker:     walker,
		FileReader: reader,
		FileWriter: writer,
		NewID:      uuid.NewString,
	}
}

// workItem represents a resume to be processed
type workItem struct {
	path string
	data []byte
}

func (r *Runner) workers() int {
	n := r.Options.Workers
	if n <= 0 {
		n = 1
	}
	if n > 8 {
		n = 8 // Cap at 8 to avoid overwhelming the AI API
	}
	return n
}

// processWorkItem turns one resume into a written QuestionSet.
func (r *Runner) processWorkItem(ctx context.Context, item workItem) error {
	text, err := extract.Text(ctx, item.path, item.data)
	if err != nil {
		return fmt.Errorf("extract %s: %w", item.path, err)
	}

	sessionID := r.NewID()
	if r.Forget != nil {
		defer r.Forget(sessionID)
	}

	n, err := r.Engine.Index(ctx, sessionID, text)
	if err != nil {
		return fmt.Errorf("index %s: %w", item.path, err)
	}
	technical, err := r.Engine.TechnicalQuestions(ctx, sessionID, r.Options.Role, r.Options.CountRole, r.Options.CountResume)
	if err != nil {
		return fmt.Errorf("technical questions %s: %w", item.path, err)
	}
	hr, err := r.Engine.HRQuestions(ctx, sessionID, r.Options.CountHR)
	if err != nil {
		return fmt.Errorf("hr questions %s: %w", item.path, err)
	}

	set := QuestionSet{
		SessionID:     sessionID,
		Source:        rel(r.Root, item.path),
		Role:          r.Options.Role,
		ChunksIndexed: n,
		Technical:     technical,
		HR:            hr,
		GeneratedAt:   time.Now().UTC(),
	}
	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	out := outputPath(r.Options.OutputDir, r.Root, item.path)
	if err := r.FileWriter.WriteFile(out, b); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	log.Info().Str("path", set.Source).
		Str("session_id", sessionID).
		Int("chunks", n).
		Int("technical", len(technical)).
		Int("hr", len(hr)).
		Str("output", out).
		Msg("question set written")
	return nil
}

// Run walks Root and processes every resume with a bounded worker pool.
// Per-resume failures are logged and counted; walk and context errors
// abort the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	numWorkers := r.workers()
	log.Info().Int("workers", numWorkers).Str("root", r.Root).Msg("starting batch run")

	workChan := make(chan workItem, numWorkers*2)

	var (
		mu  sync.Mutex
		sum Summary
		wg  sync.WaitGroup
	)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")

			for item := range workChan {
				err := r.processWorkItem(ctx, item)
				mu.Lock()
				if err != nil {
					sum.Failed++
				} else {
					sum.Processed++
				}
				mu.Unlock()
				if err != nil {
					log.Error().Err(err).Str("path", item.path).Msg("resume processing failed")
				}
			}

			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	walkErr := r.Walker.Walk(r.Root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			// de is nil when driven by test walkers
			if de != nil && de.IsDir() {
				if shouldSkipDir(path) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !isResume(path) {
				return nil
			}

			b, err := r.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}

			select {
			case workChan <- workItem{path: path, data: b}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})

	close(workChan)
	wg.Wait()

	return sum, walkErr
}

// isResume reports whether path has an extension the extractor handles.
func isResume(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".text", ".md":
		return true
	}
	return false
}

func shouldSkipDir(path string) bool {
	switch strings.ToLower(filepath.Base(path)) {
	case ".git", "node_modules", ".cache", "__pycache__", ".venv":
		return true
	}
	return false
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}

// outputPath mirrors the resume's location under dir and keeps its
// extension, so cv.pdf and cv.txt in one folder get separate files.
func outputPath(dir, root, path string) string {
	r := rel(root, path)
	if strings.HasPrefix(r, "..") {
		r = filepath.Base(path)
	}
	return filepath.Join(dir, r+".questions.json")
}

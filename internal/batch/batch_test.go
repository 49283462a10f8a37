package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog"
)

func init() {
	// Suppress logs during testing
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockInterviewer implements Interviewer for testing
type MockInterviewer struct {
	IndexFunc     func(ctx context.Context, sessionID, text string) (int, error)
	TechnicalFunc func(ctx context.Context, sessionID, role string, countRole, countResume int) ([]string, error)
	HRFunc        func(ctx context.Context, sessionID string, count int) ([]string, error)
}

func (m *MockInterviewer) Index(ctx context.Context, sessionID, text string) (int, error) {
	if m.IndexFunc != nil {
		return m.IndexFunc(ctx, sessionID, text)
	}
	return 1, nil
}

func (m *MockInterviewer) TechnicalQuestions(ctx context.Context, sessionID, role string, countRole, countResume int) ([]string, error) {
	if m.TechnicalFunc != nil {
		return m.TechnicalFunc(ctx, sessionID, role, countRole, countResume)
	}
	return []string{"T1?"}, nil
}

func (m *MockInterviewer) HRQuestions(ctx context.Context, sessionID string, count int) ([]string, error) {
	if m.HRFunc != nil {
		return m.HRFunc(ctx, sessionID, count)
	}
	return []string{"H1?"}, nil
}

// MockFileSystemWalker implements FileSystemWalker for testing
type MockFileSystemWalker struct {
	FilesToProcess []string
	WalkError      error
}

func (m *MockFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	if m.WalkError != nil {
		return m.WalkError
	}
	// godirwalk.Dirent is hard to build by hand, so callbacks get nil
	for _, p := range m.FilesToProcess {
		if err := options.Callback(p, nil); err != nil {
			return err
		}
	}
	return nil
}

// MockFileReader implements FileReader for testing
type MockFileReader struct {
	Files map[string]string
}

func (m *MockFileReader) ReadFile(filename string) ([]byte, error) {
	if content, ok := m.Files[filename]; ok {
		return []byte(content), nil
	}
	return nil, fmt.Errorf("file not found: %s", filename)
}

// MockFileWriter records written files
type MockFileWriter struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

func (m *MockFileWriter) WriteFile(filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Files == nil {
		m.Files = map[string][]byte{}
	}
	m.Files[filename] = data
	return nil
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("session-%d", n)
	}
}

func TestRunner_Run(t *testing.T) {
	opts := Options{Role: "Data Engineer", CountRole: 2, CountResume: 3, CountHR: 1, Workers: 2, OutputDir: "out"}

	tests := []struct {
		name              string
		files             map[string]string
		walkFiles         []string
		walkError         error
		engine            *MockInterviewer
		writerErr         error
		expectError       bool
		expectedProcessed int
		expectedFailed    int
		expectedOutputs   []string
	}{
		{
			name: "resumes are processed and others ignored",
			files: map[string]string{
				"/cv/alice.txt":    "Alice built data pipelines.",
				"/cv/team/bob.md":  "# Bob\nKafka and Spark.",
				"/cv/notes.docx":   "ignored",
				"/cv/missing.text": "",
			},
			walkFiles:         []string{"/cv/alice.txt", "/cv/team/bob.md", "/cv/notes.docx", "/cv/unreadable.txt"},
			engine:            &MockInterviewer{},
			expectedProcessed: 2,
			expectedOutputs:   []string{"out/alice.txt.questions.json", "out/team/bob.md.questions.json"},
		},
		{
			name: "same base name with different extensions",
			files: map[string]string{
				"/cv/cv.txt": "Dana ran on-call for payments.",
				"/cv/cv.md":  "# Dana\nGo and Postgres.",
			},
			walkFiles:         []string{"/cv/cv.txt", "/cv/cv.md"},
			engine:            &MockInterviewer{},
			expectedProcessed: 2,
			expectedOutputs:   []string{"out/cv.md.questions.json", "out/cv.txt.questions.json"},
		},
		{
			name:        "walk error is returned",
			walkError:   errors.New("permission denied"),
			engine:      &MockInterviewer{},
			expectError: true,
		},
		{
			name:      "index failure counts as failed",
			files:     map[string]string{"/cv/a.txt": "text"},
			walkFiles: []string{"/cv/a.txt"},
			engine: &MockInterviewer{IndexFunc: func(ctx context.Context, sessionID, text string) (int, error) {
				return 0, errors.New("embedding down")
			}},
			expectedFailed: 1,
		},
		{
			name:      "question failure counts as failed",
			files:     map[string]string{"/cv/a.txt": "text", "/cv/b.txt": "text"},
			walkFiles: []string{"/cv/a.txt", "/cv/b.txt"},
			engine: &MockInterviewer{HRFunc: func(ctx context.Context, sessionID string, count int) ([]string, error) {
				return nil, errors.New("llm unavailable")
			}},
			expectedFailed: 2,
		},
		{
			name:           "write failure counts as failed",
			files:          map[string]string{"/cv/a.txt": "text"},
			walkFiles:      []string{"/cv/a.txt"},
			engine:         &MockInterviewer{},
			writerErr:      errors.New("disk full"),
			expectedFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &MockFileWriter{Err: tt.writerErr}
			r := NewWithDependencies(tt.engine, "/cv", opts,
				&MockFileSystemWalker{FilesToProcess: tt.walkFiles, WalkError: tt.walkError},
				&MockFileReader{Files: tt.files},
				writer,
			)
			r.NewID = sequentialIDs()

			sum, err := r.Run(context.Background())
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if sum.Processed != tt.expectedProcessed || sum.Failed != tt.expectedFailed {
				t.Errorf("Expected %d processed / %d failed, got %+v", tt.expectedProcessed, tt.expectedFailed, sum)
			}

			var got []string
			for name := range writer.Files {
				got = append(got, filepath.ToSlash(name))
			}
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(tt.expectedOutputs, ",") {
				t.Errorf("Expected outputs %v, got %v", tt.expectedOutputs, got)
			}
		})
	}
}

func TestRunner_QuestionSetContents(t *testing.T) {
	var gotRole string
	var gotCounts [3]int
	var forgotten []string
	engine := &MockInterviewer{
		IndexFunc: func(ctx context.Context, sessionID, text string) (int, error) {
			if !strings.Contains(text, "Go") {
				t.Errorf("Expected resume text to reach Index, got %q", text)
			}
			return 4, nil
		},
		TechnicalFunc: func(ctx context.Context, sessionID, role string, countRole, countResume int) ([]string, error) {
			gotRole = role
			gotCounts[0], gotCounts[1] = countRole, countResume
			return []string{"What is a goroutine?", "Tell me about the billing service."}, nil
		},
		HRFunc: func(ctx context.Context, sessionID string, count int) ([]string, error) {
			gotCounts[2] = count
			return []string{"Why this team?"}, nil
		},
	}
	writer := &MockFileWriter{}
	r := NewWithDependencies(engine, "/cv",
		Options{Role: "Backend Engineer", CountRole: 7, CountResume: 8, CountHR: 5, Workers: 1, OutputDir: "/out"},
		&MockFileSystemWalker{FilesToProcess: []string{"/cv/carol.txt"}},
		&MockFileReader{Files: map[string]string{"/cv/carol.txt": "Carol writes Go services."}},
		writer,
	)
	r.NewID = func() string { return "fixed-id" }
	r.Forget = func(id string) { forgotten = append(forgotten, id) }

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if gotRole != "Backend Engineer" || gotCounts != [3]int{7, 8, 5} {
		t.Errorf("Unexpected engine arguments: role=%q counts=%v", gotRole, gotCounts)
	}
	if len(forgotten) != 1 || forgotten[0] != "fixed-id" {
		t.Errorf("Expected session to be released, got %v", forgotten)
	}

	data, ok := writer.Files[filepath.Join("/out", "carol.txt.questions.json")]
	if !ok {
		t.Fatalf("Expected output file, got %v", writer.Files)
	}
	var set QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if set.SessionID != "fixed-id" || set.Source != "carol.txt" || set.ChunksIndexed != 4 {
		t.Errorf("Unexpected set header: %+v", set)
	}
	if len(set.Technical) != 2 || len(set.HR) != 1 {
		t.Errorf("Unexpected questions: %+v", set)
	}
	if set.GeneratedAt.IsZero() {
		t.Error("Expected GeneratedAt to be set")
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := map[string]string{}
	var paths []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("/cv/%d.txt", i)
		files[p] = "text"
		paths = append(paths, p)
	}
	r := NewWithDependencies(&MockInterviewer{}, "/cv", Options{Workers: 1},
		&MockFileSystemWalker{FilesToProcess: paths},
		&MockFileReader{Files: files},
		&MockFileWriter{},
	)

	sum, err := r.Run(ctx)
	if sum.Processed != 0 {
		t.Errorf("Expected nothing processed with cancelled context, got %+v", sum)
	}
	// the walk may finish before noticing cancellation when the buffer has room
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunner_UtilityFunctions(t *testing.T) {
	t.Run("isResume", func(t *testing.T) {
		tests := map[string]bool{
			"a.pdf": true, "b.PDF": true, "c.txt": true, "d.md": true, "e.text": true,
			"f.docx": false, "g": false, "h.png": false,
		}
		for path, want := range tests {
			if got := isResume(path); got != want {
				t.Errorf("isResume(%q) = %v, want %v", path, got, want)
			}
		}
	})

	t.Run("shouldSkipDir", func(t *testing.T) {
		if !shouldSkipDir("/cv/.git") || !shouldSkipDir("/cv/node_modules") {
			t.Error("Expected tooling directories to be skipped")
		}
		if shouldSkipDir("/cv/2024") {
			t.Error("Expected regular directory to be walked")
		}
	})

	t.Run("outputPath", func(t *testing.T) {
		tests := []struct {
			dir, root, path, want string
		}{
			{"out", "/cv", "/cv/a.pdf", "out/a.pdf.questions.json"},
			{"out", "/cv", "/cv/a.txt", "out/a.txt.questions.json"},
			{"out", "/cv", "/cv/x/y/b.txt", "out/x/y/b.txt.questions.json"},
			{"out", "/cv", "/elsewhere/c.md", "out/c.md.questions.json"},
		}
		for _, tt := range tests {
			if got := filepath.ToSlash(outputPath(tt.dir, tt.root, tt.path)); got != tt.want {
				t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.dir, tt.root, tt.path, got, tt.want)
			}
		}
	})

	t.Run("workers", func(t *testing.T) {
		for in, want := range map[int]int{0: 1, -3: 1, 4: 4, 20: 8} {
			r := &Runner{Options: Options{Workers: in}}
			if got := r.workers(); got != want {
				t.Errorf("workers(%d) = %d, want %d", in, got, want)
			}
		}
	})
}

func TestNew(t *testing.T) {
	r := New(&MockInterviewer{}, "/cv", Options{})
	if _, ok := r.Walker.(*DefaultFileSystemWalker); !ok {
		t.Errorf("Expected DefaultFileSystemWalker, got %T", r.Walker)
	}
	if _, ok := r.FileReader.(*DefaultFileReader); !ok {
		t.Errorf("Expected DefaultFileReader, got %T", r.FileReader)
	}
	if _, ok := r.FileWriter.(*DefaultFileWriter); !ok {
		t.Errorf("Expected DefaultFileWriter, got %T", r.FileWriter)
	}
	if r.NewID() == r.NewID() {
		t.Error("Expected unique session ids")
	}
}

func TestDefaultFileWriter(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "a.json")
	w := &DefaultFileWriter{}
	if err := w.WriteFile(target, []byte(`{}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	b, err := (&DefaultFileReader{}).ReadFile(target)
	if err != nil || string(b) != "{}" {
		t.Errorf("Expected written content, got %q (%v)", b, err)
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ Interviewer = (*MockInterviewer)(nil)
	var _ FileSystemWalker = (*DefaultFileSystemWalker)(nil)
	var _ FileReader = (*DefaultFileReader)(nil)
	var _ FileWriter = (*DefaultFileWriter)(nil)
}

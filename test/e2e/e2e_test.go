//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/stemsi/curriculum-backend/internal/config"
	"github.com/stemsi/curriculum-backend/internal/model"
	"github.com/stemsi/curriculum-backend/internal/service"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	fixturePath    = "../../internal/loader/testdata/curriculum.yaml"
)

var (
	baseURL      string
	dbURL        string
	writeToken   string
	curriculumID string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	cfg := config.Load()
	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	dbURL = cfg.DatabaseURL

	if err := cleanDatabase(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	// The server must share JWT_SECRET with this process.
	token, err := service.NewAuthService(cfg).IssueToken("e2e", service.ScopeCurriculaWrite)
	if err != nil {
		fmt.Printf("Issue token failed: %v\n", err)
		os.Exit(1)
	}
	writeToken = token

	os.Exit(m.Run())
}

func cleanDatabase() error {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	// Child tables cascade.
	if _, err := conn.Exec(ctx, `DELETE FROM curricula`); err != nil {
		return fmt.Errorf("cleanup curricula: %w", err)
	}
	return nil
}

func countRows(t *testing.T, table string, id string) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	defer conn.Close(ctx)

	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE curriculum_id = $1`, table)
	if err := conn.QueryRow(ctx, q, id).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func cyclicCurriculum() *model.Curriculum {
	mod := model.Module{Code: model.String("M1"), Name: model.String("Core"), Credits: model.Number(6)}
	course := func(id string, prereqs ...model.Course) model.Course {
		if prereqs == nil {
			prereqs = []model.Course{}
		}
		return model.Course{
			ID:                  model.One(id),
			Name:                model.One("Course " + id),
			Module:              []model.Module{mod},
			Subcategory:         model.One("Core"),
			Type:                model.One("Lecture"),
			Credits:             model.One(6.0),
			Required:            model.One(1.0),
			Availability:        model.One(model.AvailabilityBoth),
			RecommendedSemester: model.One(1.0),
			Prerequisites:       prereqs,
			Frequency:           model.One(model.FrequencyYearly),
			Language:            model.One("en"),
			Description:         model.One("About " + id),
			URL:                 model.One("https://example.edu/" + id),
		}
	}
	return &model.Curriculum{
		Credits: model.Number(12),
		Modules: []model.Module{mod},
		Courses: []model.Course{course("A", course("B")), course("B", course("A"))},
	}
}

func TestE2EFlow(t *testing.T) {
	fixture, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	t.Run("Validate", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/curricula/validate?format=yaml", fixture, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("ValidateRejectsBadAvailability", func(t *testing.T) {
		doc := []byte(`{"credits": 1, "modules": [], "courses": [{"availability": "X"}]}`)
		resp, err := send(http.MethodPost, "/curricula/validate", doc, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("ImportRequiresToken", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/admin/curricula?name=e2e&format=yaml", fixture, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("Import", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/admin/curricula?name=e2e&format=yaml", fixture, writeToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var body struct {
			Data model.CurriculumRecord `json:"data"`
		}
		decodeJSON(t, resp, &body)
		curriculumID = body.Data.ID.String()

		if n := countRows(t, "curriculum_courses", curriculumID); n == 0 {
			t.Fatalf("expected indexed courses in postgres")
		}
	})

	t.Run("Summary", func(t *testing.T) {
		resp, err := send(http.MethodGet, "/curricula/"+curriculumID+"/summary", nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var body struct {
			Data struct {
				Courses int  `json:"courses"`
				Acyclic bool `json:"acyclic"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if body.Data.Courses == 0 || !body.Data.Acyclic {
			t.Fatalf("unexpected summary %+v", body.Data)
		}
	})

	t.Run("StudyOrder", func(t *testing.T) {
		resp, err := send(http.MethodGet, "/curricula/"+curriculumID+"/study-order", nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("VariantFamilyKey", func(t *testing.T) {
		path := "/curricula/" + curriculumID + "/courses/" + url.PathEscape("SE1a/SE1b") + "/variants"
		resp, err := send(http.MethodGet, path, nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var body struct {
			Data []json.RawMessage `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if len(body.Data) != 2 {
			t.Fatalf("expected two variants, got %d", len(body.Data))
		}
	})

	t.Run("CyclicStudyOrderConflicts", func(t *testing.T) {
		doc, _ := json.Marshal(cyclicCurriculum())
		resp, err := send(http.MethodPost, "/admin/curricula?name=cyclic", doc, writeToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var body struct {
			Data model.CurriculumRecord `json:"data"`
		}
		decodeJSON(t, resp, &body)
		resp.Body.Close()

		resp, err = send(http.MethodGet, "/curricula/"+body.Data.ID.String()+"/study-order", nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("AsyncImport", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/admin/curricula/import-jobs?name=queued&format=yaml", fixture, writeToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var queued struct {
			Data model.ImportJob `json:"data"`
		}
		decodeJSON(t, resp, &queued)
		resp.Body.Close()

		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := send(http.MethodGet, "/admin/curricula/import-jobs/"+queued.Data.ID.String(), nil, writeToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			var status struct {
				Data model.ImportJob `json:"data"`
			}
			decodeJSON(t, resp, &status)
			resp.Body.Close()

			switch status.Data.Status {
			case model.ImportJobDone:
				return
			case model.ImportJobFailed:
				t.Fatalf("import failed: %s", status.Data.Error)
			}
			time.Sleep(200 * time.Millisecond)
		}
		t.Fatalf("import job did not finish")
	})

	t.Run("Delete", func(t *testing.T) {
		resp, err := send(http.MethodDelete, "/admin/curricula/"+curriculumID, nil, writeToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete status %d", resp.StatusCode)
		}

		resp, err = send(http.MethodGet, "/curricula/"+curriculumID, nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
		}
		if n := countRows(t, "curriculum_courses", curriculumID); n != 0 {
			t.Fatalf("expected cascade delete, %d course rows left", n)
		}
	})
}

// Helpers

func send(method, path string, body []byte, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}

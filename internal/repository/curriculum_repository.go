package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/curriculum-backend/internal/catalog"
	"github.com/stemsi/curriculum-backend/internal/model"
)

// ErrNotFound is returned when no curriculum has the requested id.
var ErrNotFound = errors.New("curriculum not found")

const insertCurriculum = `INSERT INTO curricula (id, name, credits, document) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`
const insertModule = `INSERT INTO curriculum_modules (curriculum_id, position, code, name, credits) VALUES ($1, $2, $3, $4, $5)`
const insertCourse = `INSERT INTO curriculum_courses (curriculum_id, position, course_key, name, nested) VALUES ($1, $2, $3, $4, $5)`
const insertCourseModule = `INSERT INTO course_modules (curriculum_id, course_key, module_code) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
const insertPrerequisite = `INSERT INTO course_prerequisites (curriculum_id, course_key, prerequisite_key) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

const selectSummary = `SELECT c.id, c.name, c.credits, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM curriculum_courses cc WHERE cc.curriculum_id = c.id AND NOT cc.nested),
	(SELECT COUNT(*) FROM curriculum_modules cm WHERE cm.curriculum_id = c.id)
	FROM curricula c`

type CurriculumRepository struct {
	pool *pgxpool.Pool
}

func NewCurriculumRepository(pool *pgxpool.Pool) *CurriculumRepository {
	return &CurriculumRepository{pool: pool}
}

// Create stores the document and its normalized modules, courses and
// prerequisite edges in one transaction.
func (r *CurriculumRepository) Create(ctx context.Context, rec *model.CurriculumRecord, cat *catalog.Catalog) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, insertCurriculum, rec.ID, rec.Name, rec.Credits, doc).
		Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("insert curriculum: %w", err)
	}

	batch := &pgx.Batch{}
	for i, m := range cat.Modules() {
		batch.Queue(insertModule, rec.ID, i, m.CodeOrEmpty(), deref(m.Name), deref(m.Credits))
	}
	for _, e := range cat.Courses() {
		name, err := json.Marshal(e.Course.Name)
		if err != nil {
			return fmt.Errorf("encode course name: %w", err)
		}
		batch.Queue(insertCourse, rec.ID, e.Index, e.Key, name, e.Nested)

		for _, m := range e.Course.Module {
			batch.Queue(insertCourseModule, rec.ID, e.Key, m.CodeOrEmpty())
		}

		prereqs, err := cat.Prerequisites(e.Key)
		if err != nil {
			return err
		}
		for _, p := range prereqs {
			batch.Queue(insertPrerequisite, rec.ID, e.Key, p.Key)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert catalog rows: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *CurriculumRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CurriculumRecord, error) {
	var rec model.CurriculumRecord
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT c.id, c.name, c.credits, c.document, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM curriculum_courses cc WHERE cc.curriculum_id = c.id AND NOT cc.nested),
		(SELECT COUNT(*) FROM curriculum_modules cm WHERE cm.curriculum_id = c.id)
		FROM curricula c WHERE c.id = $1`, id).
		Scan(&rec.ID, &rec.Name, &rec.Credits, &doc, &rec.CreatedAt, &rec.UpdatedAt, &rec.CourseCount, &rec.ModuleCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Document = &model.Curriculum{}
	if err := json.Unmarshal(doc, rec.Document); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return &rec, nil
}

// GetAll returns curriculum summaries, newest first. Documents are not loaded.
func (r *CurriculumRepository) GetAll(ctx context.Context) ([]model.CurriculumRecord, error) {
	rows, err := r.pool.Query(ctx, selectSummary+` ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CurriculumRecord
	for rows.Next() {
		var rec model.CurriculumRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Credits, &rec.CreatedAt, &rec.UpdatedAt, &rec.CourseCount, &rec.ModuleCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindByModuleCode returns summaries of every curriculum in which at least
// one course counts towards the module code.
func (r *CurriculumRepository) FindByModuleCode(ctx context.Context, code string) ([]model.CurriculumRecord, error) {
	rows, err := r.pool.Query(ctx, selectSummary+`
		WHERE EXISTS (SELECT 1 FROM course_modules m WHERE m.curriculum_id = c.id AND m.module_code = $1)
		ORDER BY c.name ASC`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CurriculumRecord
	for rows.Next() {
		var rec model.CurriculumRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Credits, &rec.CreatedAt, &rec.UpdatedAt, &rec.CourseCount, &rec.ModuleCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *CurriculumRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM curricula WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

package database

import (
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/mcpdeliver/pipeliner/internal/models"
)

type DataBase struct {
	*gorm.DB
}

type DuplicateKey struct {
	nested error
}

func (e *DuplicateKey) Error() string {
	return e.nested.Error()
}

func (e *DuplicateKey) Unwrap() error {
	return e.nested
}

func NewDuplicateKey(err error) *DuplicateKey {
	return &DuplicateKey{err}
}

func IsDuplicateKey(err error) bool {
	duplicateKey := &DuplicateKey{}
	return errors.As(err, &duplicateKey)
}

// https://github.com/go-gorm/gorm/issues/4037
func isUniqueViolation(err error) bool {
	perr, ok := err.(*pgconn.PgError)
	if ok {
		return perr.Code == "23505"
	}
	return false
}

func OpenDataBase(logger *zap.Logger, dsn string) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: zapLogger,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.Run{}, &models.StageResult{})
	if err != nil {
		return nil, err
	}

	return &DataBase{db}, nil
}

// CreateRun registers a pending run. Redelivered trigger events carry
// the same delivery id and hence the same run id, so a key conflict
// means the run is already registered.
func (db *DataBase) CreateRun(run *models.Run) error {
	err := db.Create(run).Error
	if err != nil {
		if isUniqueViolation(err) {
			return NewDuplicateKey(err)
		}
		return err
	}
	return nil
}

func (db *DataBase) SaveRun(run *models.Run) error {
	return db.Save(run).Error
}

func (db *DataBase) FinishRun(id string, status models.RunStatus, failedStage string) error {
	now := time.Now()
	return db.Model(&models.Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"failed_stage": failedStage,
			"finished_at":  &now,
		}).Error
}

func (db *DataBase) FindRun(id string) (*models.Run, error) {
	var run models.Run
	err := db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (db *DataBase) ListRuns(limit int) ([]*models.Run, error) {
	var runs []*models.Run
	err := db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (db *DataBase) AddStageResult(result *models.StageResult) error {
	return db.Create(result).Error
}

func (db *DataBase) ListStageResults(runID string) ([]*models.StageResult, error) {
	var results []*models.StageResult
	err := db.Where("run_id = ?", runID).Order("id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

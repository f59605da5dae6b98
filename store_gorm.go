package main

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// gormStore is the Postgres-backed Store. Multi-step sequences (step replace,
// result + denormalized status, cascading deletes) run inside transactions so
// callers never observe a case row without its steps.
type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore { return &gormStore{db: db} }

func notFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

/* ===================== Users ====================== */

func (s *gormStore) GetUser(id int64) (*User, error) {
	var u User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *gormStore) GetUserByUsername(username string) (*User, error) {
	var u User
	if err := s.db.First(&u, "username = ?", username).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(email string) (*User, error) {
	var u User
	if err := s.db.First(&u, "email = ?", email).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *gormStore) ListUsers() ([]User, error) {
	var users []User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *gormStore) CreateUser(u *User) error { return s.db.Create(u).Error }
func (s *gormStore) UpdateUser(u *User) error { return s.db.Save(u).Error }

func (s *gormStore) CountUsers() (int64, error) {
	var n int64
	err := s.db.Model(&User{}).Count(&n).Error
	return n, err
}

/* ===================== Folders ====================== */

func (s *gormStore) GetFolder(id int64) (*Folder, error) {
	var f Folder
	if err := s.db.First(&f, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (s *gormStore) ListFolders() ([]Folder, error) {
	var folders []Folder
	if err := s.db.Order("id").Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *gormStore) CreateFolder(f *Folder) error { return s.db.Create(f).Error }
func (s *gormStore) UpdateFolder(f *Folder) error { return s.db.Save(f).Error }

func (s *gormStore) DeleteFolder(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", id).Delete(&FolderAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Folder{}, "id = ?", id).Error
	})
}

func (s *gormStore) CountFolderCases() (map[int64]int64, error) {
	type row struct {
		FolderID int64
		N        int64
	}
	var rows []row
	err := s.db.Model(&FolderAssignment{}).
		Select("folder_id, count(*) as n").
		Group("folder_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.FolderID] = r.N
	}
	return out, nil
}

/* ===================== Folder assignments ====================== */

func (s *gormStore) AssignTestCaseToFolder(folderID, testCaseID int64) (*FolderAssignment, error) {
	var fa FolderAssignment
	err := s.db.First(&fa, "folder_id = ? AND test_case_id = ?", folderID, testCaseID).Error
	if err == nil {
		// already assigned; no-op
		return &fa, nil
	}
	if !notFound(err) {
		return nil, err
	}
	fa = FolderAssignment{FolderID: folderID, TestCaseID: testCaseID}
	if err := s.db.Create(&fa).Error; err != nil {
		return nil, err
	}
	return &fa, nil
}

func (s *gormStore) RemoveTestCaseFromFolder(folderID, testCaseID int64) error {
	return s.db.Where("folder_id = ? AND test_case_id = ?", folderID, testCaseID).
		Delete(&FolderAssignment{}).Error
}

func (s *gormStore) GetFolderTestCases(folderID int64) ([]TestCase, error) {
	var cases []TestCase
	err := s.db.
		Joins("JOIN folder_assignments fa ON fa.test_case_id = test_cases.id").
		Where("fa.folder_id = ?", folderID).
		Order("test_cases.id").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func (s *gormStore) GetTestCaseFolders(testCaseID int64) ([]Folder, error) {
	var folders []Folder
	err := s.db.
		Joins("JOIN folder_assignments fa ON fa.folder_id = folders.id").
		Where("fa.test_case_id = ?", testCaseID).
		Order("folders.id").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}
	return folders, nil
}

/* ===================== Test cases ====================== */

func (s *gormStore) GetTestCase(id int64) (*TestCase, error) {
	var tc TestCase
	if err := s.db.First(&tc, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &tc, nil
}

func (s *gormStore) ListTestCases(f TestCaseFilter) ([]TestCase, error) {
	q := s.db.Model(&TestCase{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.Search != "" {
		q = q.Where("title ILIKE ?", "%"+f.Search+"%")
	}
	var cases []TestCase
	if err := q.Order("id").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (s *gormStore) CreateTestCase(tc *TestCase, steps []TestStep) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if tc.Version == 0 {
			tc.Version = 1
		}
		if err := tx.Create(tc).Error; err != nil {
			return err
		}
		renumbered := renumberSteps(tc.ID, steps)
		if len(renumbered) > 0 {
			if err := tx.Create(&renumbered).Error; err != nil {
				return err
			}
		}
		tc.Steps = renumbered
		v := snapshotVersion(tc, renumbered, tc.CreatedBy)
		return tx.Create(&v).Error
	})
}

func (s *gormStore) UpdateTestCase(id int64, patch TestCasePatch, steps *[]TestStep, actorID int64) (*TestCase, error) {
	var updated *TestCase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tc TestCase
		if err := tx.First(&tc, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return nil // updated stays nil -> caller sees absent
			}
			return err
		}
		var current []TestStep
		if err := tx.Where("test_case_id = ?", id).Order("step_number").Find(&current).Error; err != nil {
			return err
		}

		// snapshot the pre-update state under its current version number,
		// unless that version already has a row (creation writes version 1)
		var existing TestVersion
		lookupErr := tx.First(&existing, "test_case_id = ? AND version = ?", id, tc.Version).Error
		if notFound(lookupErr) {
			v := snapshotVersion(&tc, current, actorID)
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
		} else if lookupErr != nil {
			return lookupErr
		}

		applyTestCasePatch(&tc, patch)
		tc.Version++
		if err := tx.Save(&tc).Error; err != nil {
			return err
		}

		if steps != nil {
			// full replace, even for an empty slice
			if err := tx.Where("test_case_id = ?", id).Delete(&TestStep{}).Error; err != nil {
				return err
			}
			renumbered := renumberSteps(id, *steps)
			if len(renumbered) > 0 {
				if err := tx.Create(&renumbered).Error; err != nil {
					return err
				}
			}
			tc.Steps = renumbered
		} else {
			tc.Steps = current
		}
		updated = &tc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *gormStore) DeleteTestCase(id int64) error {
	// steps first: no cascading delete at the storage layer
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_case_id = ?", id).Delete(&TestStep{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_case_id = ?", id).Delete(&FolderAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&TestCase{}, "id = ?", id).Error
	})
}

func (s *gormStore) GetTestSteps(testCaseID int64) ([]TestStep, error) {
	var steps []TestStep
	err := s.db.Where("test_case_id = ?", testCaseID).Order("step_number").Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

/* ===================== Versions ====================== */

func (s *gormStore) GetTestVersions(testCaseID int64) ([]TestVersion, error) {
	var versions []TestVersion
	err := s.db.Where("test_case_id = ?", testCaseID).Order("version").Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (s *gormStore) GetTestVersion(testCaseID int64, version int) (*TestVersion, error) {
	var v TestVersion
	err := s.db.First(&v, "test_case_id = ? AND version = ?", testCaseID, version).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

/* ===================== Test runs ====================== */

func (s *gormStore) GetTestRun(id int64) (*TestRun, error) {
	var r TestRun
	if err := s.db.First(&r, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) ListTestRuns() ([]TestRun, error) {
	var runs []TestRun
	if err := s.db.Order("started_at DESC, id DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *gormStore) CreateTestRun(r *TestRun) error { return s.db.Create(r).Error }
func (s *gormStore) UpdateTestRun(r *TestRun) error { return s.db.Save(r).Error }

func (s *gormStore) DeleteTestRun(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&TestRunResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(&TestRun{}, "id = ?", id).Error
	})
}

func (s *gormStore) CompleteTestRun(id int64) (*TestRun, error) {
	var r TestRun
	if err := s.db.First(&r, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	now := time.Now().UTC()
	duration := int64(now.Sub(r.StartedAt).Seconds())
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.Duration = &duration
	if err := s.db.Model(&TestRun{}).Where("id = ?", id).Updates(map[string]any{
		"status":       r.Status,
		"completed_at": r.CompletedAt,
		"duration":     r.Duration,
	}).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) CreateTestRunResult(res *TestRunResult) error {
	// inserting a result overwrites the parent case's denormalized status and
	// lastRun; last write wins under concurrent submissions
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return err
		}
		return tx.Model(&TestCase{}).Where("id = ?", res.TestCaseID).Updates(map[string]any{
			"status":   res.Status,
			"last_run": res.ExecutedAt,
		}).Error
	})
}

func (s *gormStore) GetTestRunResults(runID int64) ([]TestRunResult, error) {
	var results []TestRunResult
	err := s.db.Where("run_id = ?", runID).Order("executed_at, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

/* ===================== Bugs ====================== */

func (s *gormStore) GetBug(id int64) (*Bug, error) {
	var b Bug
	if err := s.db.First(&b, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (s *gormStore) ListBugs(status string) ([]Bug, error) {
	q := s.db.Model(&Bug{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bugs []Bug
	if err := q.Order("reported_at DESC, id DESC").Find(&bugs).Error; err != nil {
		return nil, err
	}
	return bugs, nil
}

func (s *gormStore) CreateBug(b *Bug) error { return s.db.Create(b).Error }
func (s *gormStore) UpdateBug(b *Bug) error { return s.db.Save(b).Error }
func (s *gormStore) DeleteBug(id int64) error {
	return s.db.Delete(&Bug{}, "id = ?", id).Error
}

/* ===================== Whiteboards ====================== */

func (s *gormStore) GetWhiteboard(id int64) (*Whiteboard, error) {
	var wb Whiteboard
	if err := s.db.First(&wb, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &wb, nil
}

func (s *gormStore) ListWhiteboards() ([]Whiteboard, error) {
	var boards []Whiteboard
	if err := s.db.Order("id").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *gormStore) CreateWhiteboard(wb *Whiteboard) error { return s.db.Create(wb).Error }
func (s *gormStore) UpdateWhiteboard(wb *Whiteboard) error { return s.db.Save(wb).Error }

func (s *gormStore) UpdateWhiteboardContent(id int64, content string) (*Whiteboard, error) {
	var wb Whiteboard
	if err := s.db.First(&wb, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	wb.Content = content
	if err := s.db.Save(&wb).Error; err != nil {
		return nil, err
	}
	return &wb, nil
}

func (s *gormStore) DeleteWhiteboard(id int64) error {
	return s.db.Delete(&Whiteboard{}, "id = ?", id).Error
}

/* ===================== AI drafts ====================== */

func (s *gormStore) CreateAITestCase(a *AITestCase) error { return s.db.Create(a).Error }

func (s *gormStore) GetAITestCase(id int64) (*AITestCase, error) {
	var a AITestCase
	if err := s.db.First(&a, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *gormStore) ListAITestCases() ([]AITestCase, error) {
	var recs []AITestCase
	if err := s.db.Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *gormStore) MarkAITestCaseImported(id int64) error {
	return s.db.Model(&AITestCase{}).Where("id = ?", id).Update("imported", true).Error
}

/* ===================== Activity log ====================== */

func (s *gormStore) AppendActivity(e *ActivityLog) error { return s.db.Create(e).Error }

func (s *gormStore) ListActivity(limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []ActivityLog
	err := s.db.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

/* ===================== Aggregates ====================== */

func (s *gormStore) CountTestCasesByStatus() (map[string]int64, error) {
	return s.countByStatus(&TestCase{})
}

func (s *gormStore) CountBugsByStatus() (map[string]int64, error) {
	return s.countByStatus(&Bug{})
}

func (s *gormStore) countByStatus(model any) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.Model(model).Select("status, count(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *gormStore) GetTestRunStats() (*TestRunStats, error) {
	stats := &TestRunStats{}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.Model(&TestRun{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.Total += r.N
		switch r.Status {
		case RunStatusRunning:
			stats.Running = r.N
		case RunStatusCompleted:
			stats.Completed = r.N
		case RunStatusAborted:
			stats.Aborted = r.N
		}
	}
	var avg *float64
	err = s.db.Model(&TestRun{}).
		Where("status = ? AND duration IS NOT NULL", RunStatusCompleted).
		Select("AVG(duration)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	stats.AverageDuration = avg
	return stats, nil
}

package storage

import (
	"fmt"

	"gorm.io/gorm"
)

const deletedSuffix = "(deleted)"

// maxSuffix bounds the search so a broken taken func cannot spin forever.
const maxSuffix = 10000

// NextFreeName returns the first of base(deleted), base(deleted2), base(deleted3), ...
// for which taken reports false. It backs rename-on-delete for any entity whose names
// must be unique per user.
func NextFreeName(base string, taken func(name string) (bool, error)) (string, error) {
	for n := 1; n <= maxSuffix; n++ {
		candidate := base + deletedSuffix
		if n > 1 {
			candidate = fmt.Sprintf("%s(deleted%d)", base, n)
		}
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free name for %q", ErrConflictRetry, base)
}

// nameTaken reports whether the user already has a row of model named name.
func nameTaken(tx *gorm.DB, model any, userID uint) func(string) (bool, error) {
	return func(name string) (bool, error) {
		var count int64
		err := tx.Model(model).Where("user_id = ? AND name = ?", userID, name).Count(&count).Error
		return count > 0, Classify(err)
	}
}

// Package workspace holds the tenant operations shared by sign-up, sign-in and
// the workspace handlers: slug allocation, owner provisioning and id-or-slug
// resolution.
package workspace

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

const maxSlugLength = 48

// Slugify lower-cases s and collapses anything outside [a-z0-9] into dashes.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// ValidSlug reports whether s is already in canonical slug form.
func ValidSlug(s string) bool {
	return len(s) <= maxSlugLength && slugPattern.MatchString(s)
}

// UniqueSlug returns base, or base with the first free numeric suffix.
func UniqueSlug(tx *gorm.DB, base string) (string, error) {
	base = Slugify(base)
	if base == "" {
		base = "workspace"
	}
	candidate := base
	for n := 2; n <= 50; n++ {
		var count int64
		if err := tx.Model(&models.Workspace{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

// CreateWithOwner inserts ws and makes ownerID its sole active owner. tx should
// be a transaction.
func CreateWithOwner(tx *gorm.DB, ws *models.Workspace, ownerID string) (*models.WorkspaceMember, error) {
	ws.CreatorID = ownerID
	if err := tx.Create(ws).Error; err != nil {
		return nil, err
	}
	joined := time.Now()
	member := &models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      ownerID,
		Role:        models.RoleOwner,
		Status:      models.MemberActive,
		JoinedAt:    &joined,
	}
	if err := tx.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// ProvisionPersonal creates the personal workspace every new user starts with.
func ProvisionPersonal(tx *gorm.DB, user *models.User) (*models.Workspace, error) {
	base := user.Name
	if Slugify(base) == "" {
		base, _, _ = strings.Cut(user.Email, "@")
	}
	slug, err := UniqueSlug(tx, base)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = "Personal"
	}
	ws := &models.Workspace{
		Name: name + "'s Workspace",
		Slug: slug,
	}
	if _, err := CreateWithOwner(tx, ws, user.ID); err != nil {
		return nil, err
	}
	return ws, nil
}

// Find looks a workspace up by id, then by slug. It returns (nil, nil) when
// neither matches.
func Find(tx *gorm.DB, idOrSlug string) (*models.Workspace, error) {
	if strings.TrimSpace(idOrSlug) == "" {
		return nil, nil
	}
	var ws models.Workspace
	err := tx.Where("id = ?", idOrSlug).First(&ws).Error
	if err == nil {
		return &ws, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	err = tx.Where("slug = ?", strings.ToLower(idOrSlug)).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Resolve is Find with a missing workspace reported as a not-found error.
func Resolve(tx *gorm.DB, idOrSlug string) (*models.Workspace, error) {
	ws, err := Find(tx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, apperr.NotFound("Workspace not found")
	}
	return ws, nil
}

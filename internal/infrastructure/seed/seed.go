// Package seed loads a demo directory and feedback history from YAML into an
// empty store.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/pkg/ids"
)

// File is the on-disk seed document. Users reference each other by Key.
type File struct {
	Users    []User     `yaml:"users"`
	Feedback []Feedback `yaml:"feedback"`
}

type User struct {
	Key       string `yaml:"key"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Manager   string `yaml:"manager,omitempty"`
}

type Feedback struct {
	Manager        string    `yaml:"manager"`
	Employee       string    `yaml:"employee"`
	Strengths      string    `yaml:"strengths"`
	AreasToImprove string    `yaml:"areas_to_improve"`
	Sentiment      string    `yaml:"sentiment"`
	Tags           string    `yaml:"tags"`
	Comments       string    `yaml:"comments"`
	Date           time.Time `yaml:"date"`
	Acknowledged   bool      `yaml:"acknowledged"`
}

// Parse decodes and validates a seed payload.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("seed: payload is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses a seed file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return f, nil
}

// Validate checks that every reference resolves and that the team tree is
// one level deep.
func (f *File) Validate() error {
	roles := make(map[string]domain.Role, len(f.Users))
	for _, u := range f.Users {
		if strings.TrimSpace(u.Key) == "" {
			return fmt.Errorf("seed: user %q has no key", u.Email)
		}
		if _, dup := roles[u.Key]; dup {
			return fmt.Errorf("seed: duplicate user key %q", u.Key)
		}
		role := domain.Role(u.Role)
		if !role.Valid() {
			return fmt.Errorf("seed: user %q has invalid role %q", u.Key, u.Role)
		}
		roles[u.Key] = role
	}
	for _, u := range f.Users {
		if u.Manager == "" {
			continue
		}
		if roles[u.Key] != domain.RoleEmployee || roles[u.Manager] != domain.RoleManager {
			return fmt.Errorf("seed: user %q must be an employee reporting to a manager", u.Key)
		}
	}
	managerOf := make(map[string]string)
	for _, u := range f.Users {
		managerOf[u.Key] = u.Manager
	}
	for i, fb := range f.Feedback {
		if managerOf[fb.Employee] == "" || managerOf[fb.Employee] != fb.Manager {
			return fmt.Errorf("seed: feedback %d: %q is not a direct report of %q", i, fb.Employee, fb.Manager)
		}
		if _, err := domain.ParseSentiment(fb.Sentiment); err != nil {
			return fmt.Errorf("seed: feedback %d: %w", i, err)
		}
	}
	return nil
}

// Apply writes the seed into the repositories. It does nothing when the
// directory already has users, so restarts never duplicate data.
func Apply(ctx context.Context, f *File, users ports.UserRepository, feedback ports.FeedbackRepository, log zerolog.Logger) error {
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if n > 0 {
		log.Info().Int64("users", n).Msg("store already populated, skipping seed")
		return nil
	}

	now := time.Now().UTC()
	idByKey := make(map[string]string, len(f.Users))
	for _, u := range f.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed: hash password for %q: %w", u.Key, err)
		}
		user := &domain.User{
			ID:           ids.New(),
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Email:        strings.ToLower(strings.TrimSpace(u.Email)),
			PasswordHash: string(hash),
			Role:         domain.Role(u.Role),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed: create user %q: %w", u.Key, err)
		}
		idByKey[u.Key] = user.ID
	}

	for _, u := range f.Users {
		if u.Manager == "" {
			continue
		}
		if err := users.AssignManager(ctx, idByKey[u.Key], idByKey[u.Manager]); err != nil {
			return fmt.Errorf("seed: assign %q to %q: %w", u.Key, u.Manager, err)
		}
	}

	for i, fb := range f.Feedback {
		sentiment, _ := domain.ParseSentiment(fb.Sentiment)
		tags, err := domain.ParseTags(fb.Tags)
		if err != nil {
			return fmt.Errorf("seed: feedback %d: %w", i, err)
		}
		created := fb.Date.UTC()
		if created.IsZero() {
			created = now
		}
		rec := &domain.Feedback{
			ID:             ids.New(),
			EmployeeID:     idByKey[fb.Employee],
			ManagerID:      idByKey[fb.Manager],
			Strengths:      fb.Strengths,
			AreasToImprove: fb.AreasToImprove,
			Sentiment:      sentiment,
			Tags:           tags,
			Comments:       fb.Comments,
			Acknowledged:   fb.Acknowledged,
			Version:        1,
			CreatedAt:      created,
			UpdatedAt:      created,
		}
		if fb.Acknowledged {
			at := created
			rec.AcknowledgedAt = &at
		}
		if err := feedback.Create(ctx, rec); err != nil {
			return fmt.Errorf("seed: create feedback %d: %w", i, err)
		}
	}

	log.Info().
		Int("users", len(f.Users)).
		Int("feedback", len(f.Feedback)).
		Msg("seed applied")
	return nil
}

// Package registry supplies the list of monitored targets. The collectors
// treat it as read-only: targets are loaded fresh at the start of every tick
// and never mutated during one.
package registry

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// List returns all registered targets.
func List() ([]models.Target, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, name, host, port, username, auth_type, password, private_key, is_local, created_at
		FROM targets
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	targets := []models.Target{}
	for rows.Next() {
		var t models.Target
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Host, &t.Port, &t.Username,
			&t.AuthType, &t.Password, &t.PrivateKey, &t.IsLocal, &t.CreatedAt); err != nil {
			continue
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Get returns a single target by id.
func Get(id string) (models.Target, error) {
	var t models.Target
	err := database.DB.QueryRow(`
		SELECT id, user_id, name, host, port, username, auth_type, password, private_key, is_local, created_at
		FROM targets WHERE id = ?
	`, id).Scan(&t.ID, &t.UserID, &t.Name, &t.Host, &t.Port, &t.Username,
		&t.AuthType, &t.Password, &t.PrivateKey, &t.IsLocal, &t.CreatedAt)
	return t, err
}

// Add registers a new target, assigning it an id when missing.
func Add(t models.Target) (models.Target, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Port == 0 {
		t.Port = 22
	}
	if t.UserID == 0 {
		t.UserID = 1
	}
	if t.AuthType == "" {
		t.AuthType = models.AuthPassword
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	_, err := database.DB.Exec(`
		INSERT INTO targets (id, user_id, name, host, port, username, auth_type, password, private_key, is_local, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Name, t.Host, t.Port, t.Username, t.AuthType, t.Password, t.PrivateKey, t.IsLocal, t.CreatedAt)
	if err != nil {
		return t, fmt.Errorf("failed to add target: %w", err)
	}
	return t, nil
}

type seedFile struct {
	Targets []struct {
		Name       string `yaml:"name"`
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Username   string `yaml:"username"`
		AuthType   string `yaml:"auth_type"`
		Password   string `yaml:"password"`
		PrivateKey string `yaml:"private_key"`
		IsLocal    bool   `yaml:"is_local"`
		UserID     int64  `yaml:"user_id"`
	} `yaml:"targets"`
}

// SeedFromFile imports targets from a YAML file into an empty registry.
// A missing file or a non-empty registry is a no-op.
func SeedFromFile(path string) error {
	if path == "" {
		return nil
	}
	var count int
	if err := database.DB.QueryRow("SELECT COUNT(*) FROM targets").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read target seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse target seed file: %w", err)
	}

	for _, st := range seed.Targets {
		t := models.Target{
			Name:       st.Name,
			Host:       st.Host,
			Port:       st.Port,
			Username:   st.Username,
			AuthType:   models.AuthType(st.AuthType),
			Password:   st.Password,
			PrivateKey: st.PrivateKey,
			IsLocal:    st.IsLocal,
			UserID:     st.UserID,
		}
		if _, err := Add(t); err != nil {
			log.Printf("Warning: failed to seed target %s: %v", st.Name, err)
		}
	}
	if len(seed.Targets) > 0 {
		log.Printf("✅ Seeded %d targets from %s", len(seed.Targets), path)
	}
	return nil
}

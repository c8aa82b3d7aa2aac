package corestate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uuidDataFile = "data"

// GetNodeUUID reads the node identifier from <metaInfPath>/data. metaInfPath
// is the "uuid" directory itself.
func GetNodeUUID(metaInfPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(metaInfPath, uuidDataFile))
	if err != nil {
		return "", err
	}
	id, err := uuid.FromBytes(data)
	if err != nil {
		return "", errors.New("node uuid is corrupted: " + err.Error())
	}
	return id.String(), nil
}

// SetNodeUUID generates a new identifier, replacing the whole directory.
func SetNodeUUID(metaInfPath string) error {
	if filepath.Base(filepath.Clean(metaInfPath)) != "uuid" {
		return errors.New("invalid meta/uuid path")
	}
	if err := os.RemoveAll(metaInfPath); err != nil {
		return err
	}
	if err := os.MkdirAll(metaInfPath, 0755); err != nil {
		return err
	}

	id := uuid.New()
	raw, _ := id.MarshalBinary()
	if err := os.WriteFile(filepath.Join(metaInfPath, uuidDataFile), raw, 0644); err != nil {
		return err
	}

	readme := strings.Join([]string{
		" - - - - ! DO NOT MODIFY THIS DIRECTORY ! - - - - ",
		"The file named data holds the node identifier in binary form.",
		"Discovery entries and runtime directories are keyed by it.",
		"Deleting it gives the node a new identity on the next start.",
	}, "\n")
	return os.WriteFile(filepath.Join(metaInfPath, "README.txt"), []byte(readme), 0644)
}

// LoadOrCreateNodeUUID returns the stored identifier, creating one if none exists.
func LoadOrCreateNodeUUID(metaInfPath string) (string, error) {
	id, err := GetNodeUUID(metaInfPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := SetNodeUUID(metaInfPath); err != nil {
			return "", err
		}
		return GetNodeUUID(metaInfPath)
	}
	return id, err
}

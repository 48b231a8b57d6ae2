package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/recoverfit/internal/contexthelpers"
)

type BaseTemplateData struct {
	// CurrentPath highlights the active navigation link.
	CurrentPath string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{CurrentPath: contexthelpers.CurrentPath(r.Context())}
}

type errorTemplateData struct {
	BaseTemplateData
	Message string
}

// findModuleDir walks up from the working directory to the first directory holding go.mod. Tests run in the package
// directory, so this finds ui/ without configuration.
func findModuleDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for ; ; dir = filepath.Dir(dir) {
		if _, err = os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no go.mod above working directory: %w", os.ErrNotExist)
		}
	}
}

// resolveUIPath returns configured when set, otherwise <module root>/ui/<dir>. The result must be a directory
// containing mustContain.
func resolveUIPath(configured, dir, mustContain string) (string, error) {
	path := configured
	if path == "" {
		root, err := findModuleDir()
		if err != nil {
			return "", fmt.Errorf("find module dir: %w", err)
		}
		path = filepath.Join(root, "ui", dir)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%s path not found %s: %w", dir, path, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("%s path is not a directory: %s", dir, path)
	}
	if _, err = os.Stat(filepath.Join(path, mustContain)); err != nil {
		return "", fmt.Errorf("%s path %s is missing %s: %w", dir, path, mustContain, err)
	}
	return path, nil
}

// resolveAndVerifyTemplatePath finds the template directory. It must contain base.gohtml.
func resolveAndVerifyTemplatePath(templatePath string) (string, error) {
	return resolveUIPath(templatePath, "templates", "base.gohtml")
}

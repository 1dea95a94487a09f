package media

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
)

const (
	makeTimeLayout   = "060102_150405"
	dateFolderLayout = "060102"
)

// ClassificationResult is the contract between the classifier and the
// catalog store: where the file landed and what is known about it.
type ClassificationResult struct {
	NewPath  string // absolute, slash-separated post-relocation path
	MakeTime string // file modification time, yyMMdd_HHmmss
	Platform string
	Metadata map[string]interface{}
}

// ProcessImage classifies srcPath under destRoot, extracts its metadata
// and moves the file to destRoot/<platform>/<yyMMdd>/<name>. The date
// component comes from the file's modification time, never from embedded
// metadata. It returns (nil, nil) when the destination already exists: the
// source is a duplicate and is left untouched.
func ProcessImage(srcPath, destRoot string) (*ClassificationResult, error) {
	fi, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}
	makeTime := fi.ModTime()

	// the file is read fully and the handle released before any move;
	// some platforms hold exclusive locks on open files
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", srcPath, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", srcPath, err)
	}

	info, err := ReadTextChunks(bytes.NewReader(data))
	if err != nil {
		log.Printf("media: failed to read text chunks of %s: %v", srcPath, err)
		info = make(map[string]string)
	}

	platform := DetectPlatform(img, info)

	destFolder := filepath.Join(destRoot, platform, makeTime.Format(dateFolderLayout))
	if err := os.MkdirAll(destFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination folder %s: %w", destFolder, err)
	}

	newPath := filepath.Join(destFolder, filepath.Base(srcPath))
	if _, err := os.Stat(newPath); err == nil {
		log.Printf("media: file %s already exists at %s, skipping", filepath.Base(srcPath), destFolder)
		return nil, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat destination %s: %w", newPath, err)
	}

	metadata := ExtractMetadata(img, info)

	if err := os.Rename(srcPath, newPath); err != nil {
		return nil, fmt.Errorf("failed to move %s to %s: %w", srcPath, newPath, err)
	}

	absPath, err := filepath.Abs(newPath)
	if err != nil {
		absPath = newPath
	}

	return &ClassificationResult{
		NewPath:  filepath.ToSlash(absPath),
		MakeTime: makeTime.Format(makeTimeLayout),
		Platform: platform,
		Metadata: metadata,
	}, nil
}

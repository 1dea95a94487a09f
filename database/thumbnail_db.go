package database

import (
	"database/sql"
	"fmt"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
)

type ThumbnailInfo struct {
	ThumbnailPath string
	LastModified  int64
}

// GetThumbnailInfo retrieves thumbnail path and last modified time for an
// archived image path
func GetThumbnailInfo(db *sql.DB, imagePath string) (ThumbnailInfo, error) {
	var info ThumbnailInfo

	queryBuilder := psql.Select("thumbnail_path", "last_modified").
		From("thumbnails").
		Where(sq.Eq{"image_path": filepath.ToSlash(imagePath)}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return ThumbnailInfo{}, fmt.Errorf("failed to build SQL query for GetThumbnailInfo: %w", err)
	}

	err = db.QueryRow(sqlStr, args...).Scan(&info.ThumbnailPath, &info.LastModified)
	if err != nil {
		if err == sql.ErrNoRows {
			return ThumbnailInfo{}, sql.ErrNoRows
		}
		return ThumbnailInfo{}, fmt.Errorf("failed to query or scan thumbnail info for %s: %w", imagePath, err)
	}
	return info, nil
}

// SetThumbnailInfo inserts or updates thumbnail information
func SetThumbnailInfo(db *sql.DB, imagePath, thumbnailPath string, lastModified int64) error {
	imagePath = filepath.ToSlash(imagePath)
	queryBuilder := psql.Insert("thumbnails").
		Columns("image_path", "thumbnail_path", "last_modified").
		Values(imagePath, thumbnailPath, lastModified).
		Suffix("ON CONFLICT(image_path) DO UPDATE SET").
		Suffix("thumbnail_path = excluded.thumbnail_path,").
		Suffix("last_modified = excluded.last_modified")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for SetThumbnailInfo: %w", err)
	}
	_, err = db.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute set thumbnail info for %s: %w", imagePath, err)
	}
	return nil
}

// DeleteThumbnailInfo removes the thumbnail record for an archived image
// path and returns the thumbnail path that was recorded, if any
func DeleteThumbnailInfo(db *sql.DB, imagePath string) (string, error) {
	info, err := GetThumbnailInfo(db, imagePath)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", sql.ErrNoRows
		}
		return "", err
	}

	queryBuilder := psql.Delete("thumbnails").
		Where(sq.Eq{"image_path": filepath.ToSlash(imagePath)})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build SQL query for DeleteThumbnailInfo: %w", err)
	}
	if _, err := db.Exec(sqlStr, args...); err != nil {
		return "", fmt.Errorf("failed to delete thumbnail info for %s: %w", imagePath, err)
	}
	return info.ThumbnailPath, nil
}

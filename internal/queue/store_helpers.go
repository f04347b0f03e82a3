package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, ingest_id, package_path, package_name, paid, provider_id, onapi_provider_id, title, status, is_update, is_adult, is_ultra_hd, is_tvod, version_major, version_minor, work_dir, adi_path, delivery_path, progress_stage, progress_message, progress_percent, error_message, first_seen_at, created_at, updated_at, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		ingestID         string
		packagePath      string
		packageName      string
		paid             string
		providerID       string
		onapiProviderID  string
		title            string
		statusStr        string
		isUpdate         int64
		isAdult          int64
		isUltraHD        int64
		isTVOD           int64
		versionMajor     int64
		versionMinor     int64
		workDir          sql.NullString
		adiPath          sql.NullString
		deliveryPath     sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		progressPercent  sql.NullFloat64
		errorMessage     sql.NullString
		firstSeenRaw     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&ingestID,
		&packagePath,
		&packageName,
		&paid,
		&providerID,
		&onapiProviderID,
		&title,
		&statusStr,
		&isUpdate,
		&isAdult,
		&isUltraHD,
		&isTVOD,
		&versionMajor,
		&versionMinor,
		&workDir,
		&adiPath,
		&deliveryPath,
		&progressStage,
		&progressMessage,
		&progressPercent,
		&errorMessage,
		&firstSeenRaw,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		IngestID:        ingestID,
		PackagePath:     packagePath,
		PackageName:     packageName,
		PAID:            paid,
		ProviderID:      providerID,
		OnAPIProviderID: onapiProviderID,
		Title:           title,
		Status:          Status(statusStr),
		IsUpdate:        isUpdate != 0,
		IsAdult:         isAdult != 0,
		IsUltraHD:       isUltraHD != 0,
		IsTVOD:          isTVOD != 0,
		VersionMajor:    int(versionMajor),
		VersionMinor:    int(versionMinor),
		WorkDir:         workDir.String,
		AdiPath:         adiPath.String,
		DeliveryPath:    deliveryPath.String,
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
		ProgressPercent: progressPercent.Float64,
		ErrorMessage:    errorMessage.String,
	}

	if firstSeen, err := parseTimeString(firstSeenRaw.String); err == nil {
		item.FirstSeenAt = firstSeen
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

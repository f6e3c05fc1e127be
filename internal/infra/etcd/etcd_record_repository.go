// internal/infra/etcd/etcd_record_repository.go
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultPageSize = 20

type etcdRecordRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdRecordRepository creates a repository for decode records backed by etcd.
func NewEtcdRecordRepository(client *clientv3.Client, logger *slog.Logger) domain.DecodeRecordRepository {
	return &etcdRecordRepository{
		client: client,
		logger: logger.With("component", "record-repo"),
		tracer: otel.Tracer("translation-dispatch-etcd-record-repo"),
	}
}

// Save persists a decode record to etcd under /nmt/records/{id}.
func (r *etcdRecordRepository) Save(ctx context.Context, record *domain.DecodeRecord) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveRecord")
	defer span.End()

	if err := record.Validate(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("invalid decode record: %w", err)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal decode record")
		return fmt.Errorf("failed to marshal decode record %s to JSON: %w", record.ID, err)
	}

	key := RecordDir + record.ID
	span.SetAttributes(
		attribute.String("record.id", record.ID),
		attribute.String("record.status", string(record.Status)),
		attribute.String("etcd.key", key),
	)

	if _, err := r.client.Put(ctx, key, string(recordJSON)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put decode record to etcd")
		return fmt.Errorf("failed to save decode record %s to etcd: %w", record.ID, err)
	}
	return nil
}

// Get retrieves a single decode record.
func (r *etcdRecordRepository) Get(ctx context.Context, id string) (*domain.DecodeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetRecord")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", id))

	resp, err := r.client.Get(ctx, RecordDir+id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get decode record from etcd")
		return nil, fmt.Errorf("failed to get decode record %s from etcd: %w", id, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	var record domain.DecodeRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal decode record")
		return nil, fmt.Errorf("failed to unmarshal decode record %s from JSON: %w", id, err)
	}
	return &record, nil
}

// List returns one page of decode records, newest first. Pages start at 1.
func (r *etcdRecordRepository) List(ctx context.Context, page, pageSize int) ([]*domain.DecodeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize))

	resp, err := r.client.Get(ctx, RecordDir,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortDescend),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list decode records from etcd")
		return nil, fmt.Errorf("failed to list decode records from etcd: %w", err)
	}

	// Manual pagination; etcd limits count keys, not offsets.
	start, end := pageBounds(page, pageSize, len(resp.Kvs))
	records := make([]*domain.DecodeRecord, 0, end-start)
	for _, kv := range resp.Kvs[start:end] {
		var record domain.DecodeRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			r.logger.Warn("failed to unmarshal decode record from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		records = append(records, &record)
	}
	span.SetAttributes(attribute.Int("records_returned", len(records)))
	return records, nil
}

// DeleteFinishedBefore removes finished records whose end time is before cutoff.
// A record updated concurrently is left alone.
func (r *etcdRecordRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.PruneRecords")
	defer span.End()

	resp, err := r.client.Get(ctx, RecordDir, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scan decode records")
		return 0, fmt.Errorf("failed to scan decode records from etcd: %w", err)
	}

	deleted := 0
	for _, kv := range resp.Kvs {
		var record domain.DecodeRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			r.logger.Warn("skipping unreadable decode record", "key", string(kv.Key), "error", err)
			continue
		}
		if !expired(&record, cutoff) {
			continue
		}

		key := string(kv.Key)
		txn, err := r.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)).
			Then(clientv3.OpDelete(key)).
			Commit()
		if err != nil {
			span.RecordError(err)
			return deleted, fmt.Errorf("failed to delete decode record %s: %w", record.ID, err)
		}
		if txn.Succeeded {
			deleted++
		}
	}
	span.SetAttributes(attribute.Int("records_deleted", deleted))
	return deleted, nil
}

func expired(record *domain.DecodeRecord, cutoff time.Time) bool {
	return record.Status.Finished() && !record.EndTime.IsZero() && record.EndTime.Before(cutoff)
}

// pageBounds converts a 1-based page into slice bounds over total items.
func pageBounds(page, pageSize, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return start, end
}

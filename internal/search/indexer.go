package search

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

// Indexer manages the search index for calendar events.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewIndexer creates a new search indexer with an in-memory Bleve index.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		logger:     logging.With().Str("component", "search").Logger(),
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	eventMapping := bleve.NewDocumentMapping()

	// Free text fields, searchable through _all
	eventMapping.AddFieldMappingsAt("name", bleve.NewTextFieldMapping())
	eventMapping.AddFieldMappingsAt("location", bleve.NewTextFieldMapping())
	eventMapping.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())

	// Exact-match filters, kept out of _all
	for _, field := range []string{"user", "date"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		eventMapping.AddFieldMappingsAt(field, fm)
	}

	// Stored for retrieval only
	for _, field := range []string{"start_time", "end_time"} {
		fm := bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeInAll = false
		eventMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", eventMapping)

	return indexMapping
}

// docID is "<user>/<event>".
func docID(userID, eventID int64) string {
	return fmt.Sprintf("%d/%d", userID, eventID)
}

// IndexEvents replaces the indexed events of a user. Events without an id
// are skipped.
func (i *Indexer) IndexEvents(userID int64, events []storage.HistoricalEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.removeUser(userID); err != nil {
		return err
	}

	batch := i.bleveIndex.NewBatch()

	for _, event := range events {
		if event.ID == 0 {
			i.logger.Debug().Str("event", event.Name).Msg("skipping unsaved event")
			continue
		}

		doc := map[string]interface{}{
			"name":        event.Name,
			"location":    event.Location,
			"description": event.Description,
			"user":        strconv.FormatInt(userID, 10),
			"date":        event.Date,
			"start_time":  event.StartTime,
			"end_time":    event.EndTime,
		}

		id := docID(userID, event.ID)
		if err := batch.Index(id, doc); err != nil {
			i.logger.Warn().Err(err).Str("doc", id).Msg("failed to index event")
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index events: %w", err)
	}

	return nil
}

// RemoveUser removes all events of a user.
func (i *Indexer) RemoveUser(userID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.removeUser(userID)
}

func (i *Indexer) removeUser(userID int64) error {
	q := bleve.NewTermQuery(strconv.FormatInt(userID, 10))
	q.SetField("user")

	for {
		results, err := i.bleveIndex.Search(bleve.NewSearchRequestOptions(q, 1000, 0, false))
		if err != nil {
			return fmt.Errorf("failed to find user docs: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}

		batch := i.bleveIndex.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.bleveIndex.Batch(batch); err != nil {
			return fmt.Errorf("failed to batch delete: %w", err)
		}
	}
}

// Count returns the total number of indexed events.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}

// buildMatchQuery matches text against the _all field, tolerating one typo.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	q := bleve.NewMatchQuery(searchText)
	q.SetFuzziness(1)
	return q
}

package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var resultFields = []string{"name", "location", "date", "start_time", "end_time"}

// Search performs BM25 keyword search across all users.
func (i *Indexer) Search(text string, limit int) ([]EventResult, error) {
	return i.run(i.buildMatchQuery(text), limit)
}

// SearchByUser performs BM25 search scoped to one user.
func (i *Indexer) SearchByUser(text string, userID int64, limit int) ([]EventResult, error) {
	userQuery := bleve.NewTermQuery(strconv.FormatInt(userID, 10))
	userQuery.SetField("user")

	return i.run(bleve.NewConjunctionQuery(i.buildMatchQuery(text), userQuery), limit)
}

// EventsOn returns a user's indexed events on date (YYYY-MM-DD).
func (i *Indexer) EventsOn(userID int64, date string, limit int) ([]EventResult, error) {
	userQuery := bleve.NewTermQuery(strconv.FormatInt(userID, 10))
	userQuery.SetField("user")
	dateQuery := bleve.NewTermQuery(date)
	dateQuery.SetField("date")

	return i.run(bleve.NewConjunctionQuery(userQuery, dateQuery), limit)
}

func (i *Indexer) run(q query.Query, limit int) ([]EventResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	searchRequest := bleve.NewSearchRequestOptions(q, limit, 0, false)
	searchRequest.Fields = resultFields

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	return convertBleveResults(results), nil
}

// convertBleveResults converts Bleve hits to EventResults.
func convertBleveResults(results *bleve.SearchResult) []EventResult {
	out := make([]EventResult, 0, len(results.Hits))

	for _, hit := range results.Hits {
		userID, eventID, ok := parseDocID(hit.ID)
		if !ok {
			continue
		}

		name, _ := hit.Fields["name"].(string)
		location, _ := hit.Fields["location"].(string)
		date, _ := hit.Fields["date"].(string)
		start, _ := hit.Fields["start_time"].(string)
		end, _ := hit.Fields["end_time"].(string)

		out = append(out, EventResult{
			EventID:   eventID,
			UserID:    userID,
			Name:      name,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			Location:  location,
			Score:     hit.Score,
		})
	}

	return out
}

func parseDocID(id string) (userID, eventID int64, ok bool) {
	user, event, found := strings.Cut(id, "/")
	if !found {
		return 0, 0, false
	}
	u, err := strconv.ParseInt(user, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.ParseInt(event, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return u, e, true
}

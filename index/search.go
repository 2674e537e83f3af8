package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// DefaultSearchLimit caps result sets when the caller does not pick a limit.
const DefaultSearchLimit = 500

// indexBatchSize is how many records go into one bleve batch during build.
const indexBatchSize = 1000

// SearchIndex answers catalog queries over a frozen store. Bleve narrows by
// the exact-valued facet fields; the name query is then verified in Go as a
// case-insensitive substring, which bleve's tokenized matching cannot
// express. The index is immutable once built.
type SearchIndex struct {
	index bleve.Index
	store *Store

	// lowercased copies for substring verification, by global position
	loweredNames    []string
	loweredArchives []string
}

// recordDocument is the document structure stored in bleve.
type recordDocument struct {
	Name      string   `json:"name"`
	Platform  string   `json:"platform"`
	Region    []string `json:"region"`
	Languages []string `json:"languages"`
	Archive   string   `json:"archive"`
}

// buildIndexMapping creates the bleve mapping for game records. The facet
// fields use the keyword analyzer so term queries compare whole values.
func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Store = false // records live in the store, not in bleve
	nameFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	archiveFieldMapping := bleve.NewTextFieldMapping()
	archiveFieldMapping.Store = false
	archiveFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("archive", archiveFieldMapping)

	platformFieldMapping := bleve.NewKeywordFieldMapping()
	platformFieldMapping.Store = false
	platformFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("platform", platformFieldMapping)

	regionFieldMapping := bleve.NewKeywordFieldMapping()
	regionFieldMapping.Store = false
	regionFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("region", regionFieldMapping)

	languagesFieldMapping := bleve.NewKeywordFieldMapping()
	languagesFieldMapping.Store = false
	languagesFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("languages", languagesFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// BuildSearchIndex indexes every record of a frozen store into an in-memory
// bleve index. The document ID is the record's global position in decimal.
func BuildSearchIndex(store *Store) (*SearchIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}

	records := store.Records()
	si := &SearchIndex{
		index:           bleveIndex,
		store:           store,
		loweredNames:    make([]string, len(records)),
		loweredArchives: make([]string, len(records)),
	}

	batch := bleveIndex.NewBatch()
	for pos := range records {
		rec := &records[pos]
		si.loweredNames[pos] = strings.ToLower(rec.Name)
		si.loweredArchives[pos] = strings.ToLower(rec.ArchiveName)

		doc := recordDocument{
			Name:      rec.Name,
			Platform:  rec.Platform,
			Region:    rec.Region,
			Languages: rec.Languages,
			Archive:   rec.ArchiveName,
		}
		if err := batch.Index(strconv.Itoa(pos), doc); err != nil {
			return nil, fmt.Errorf("indexing record %d: %w", pos, err)
		}
		if batch.Size() >= indexBatchSize {
			if err := bleveIndex.Batch(batch); err != nil {
				return nil, fmt.Errorf("flushing index batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := bleveIndex.Batch(batch); err != nil {
			return nil, fmt.Errorf("flushing index batch: %w", err)
		}
	}

	return si, nil
}

// SearchOptions configures a catalog search. All filters combine with AND;
// the values inside Regions and inside Languages combine with OR against
// the record's own sets. Blank filter values are ignored.
type SearchOptions struct {
	Query          string   // case-insensitive substring of the record name
	Platform       string   // exact platform label
	Regions        []string // match records whose region set intersects
	Languages      []string // match records whose language set intersects
	IncludeArchive bool     // also match the query against archive names
	Limit          int      // max records returned; <= 0 means DefaultSearchLimit
}

// Search returns matching records ordered by platform, then name, then
// global load order, capped at the limit. The second return is the total
// number of matches before the cap. Query whitespace is trimmed; an empty
// query matches every record that passes the filters.
func (si *SearchIndex) Search(opts SearchOptions) ([]catalog.GameRecord, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	queryLower := strings.ToLower(strings.TrimSpace(opts.Query))

	positions, filtered, err := si.filterCandidates(opts)
	if err != nil {
		return nil, 0, err
	}

	var matches []int
	consider := func(pos int) {
		if si.matchesQuery(pos, queryLower, opts.IncludeArchive) {
			matches = append(matches, pos)
		}
	}
	if filtered {
		for _, pos := range positions {
			consider(pos)
		}
	} else {
		for pos := 0; pos < si.store.RecordCount(); pos++ {
			consider(pos)
		}
	}

	total := len(matches)

	records := si.store.Records()
	sort.Slice(matches, func(i, j int) bool {
		a, b := &records[matches[i]], &records[matches[j]]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return matches[i] < matches[j]
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]catalog.GameRecord, len(matches))
	for i, pos := range matches {
		results[i] = records[pos]
	}
	return results, total, nil
}

// filterCandidates narrows the record set through bleve using the facet
// filters. When no filter is set it reports filtered=false and the caller
// scans the whole store, since a substring query cannot be narrowed by a
// tokenized index.
func (si *SearchIndex) filterCandidates(opts SearchOptions) (positions []int, filtered bool, err error) {
	var filters []query.Query
	if opts.Platform != "" {
		tq := bleve.NewTermQuery(opts.Platform)
		tq.SetField("platform")
		filters = append(filters, tq)
	}
	if dq := anyTermQuery("region", opts.Regions); dq != nil {
		filters = append(filters, dq)
	}
	if dq := anyTermQuery("languages", opts.Languages); dq != nil {
		filters = append(filters, dq)
	}
	if len(filters) == 0 {
		return nil, false, nil
	}

	searchRequest := bleve.NewSearchRequest(bleve.NewConjunctionQuery(filters...))
	searchRequest.Size = si.store.RecordCount()

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, false, fmt.Errorf("searching index: %w", err)
	}

	positions = make([]int, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		pos, convErr := strconv.Atoi(hit.ID)
		if convErr != nil {
			continue
		}
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions, true, nil
}

// anyTermQuery builds a disjunction of exact term queries over one field,
// skipping blank values. Returns nil when nothing remains.
func anyTermQuery(field string, values []string) query.Query {
	var terms []query.Query
	for _, v := range values {
		if v == "" {
			continue
		}
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		terms = append(terms, tq)
	}
	if len(terms) == 0 {
		return nil
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return bleve.NewDisjunctionQuery(terms...)
}

// matchesQuery applies the substring verification for one record.
func (si *SearchIndex) matchesQuery(pos int, queryLower string, includeArchive bool) bool {
	if queryLower == "" {
		return true
	}
	if strings.Contains(si.loweredNames[pos], queryLower) {
		return true
	}
	return includeArchive && si.loweredArchives[pos] != "" &&
		strings.Contains(si.loweredArchives[pos], queryLower)
}

// DocCount returns the number of records in the bleve index.
func (si *SearchIndex) DocCount() uint64 {
	count, _ := si.index.DocCount()
	return count
}

// Close releases the bleve index. Only the process shutdown path needs
// this; superseded snapshots are simply dropped because the memory-only
// index holds no files or goroutines.
func (si *SearchIndex) Close() error {
	return si.index.Close()
}

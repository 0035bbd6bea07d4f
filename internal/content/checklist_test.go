package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChecklist(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checklist.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validChecklist = `{
	"title": "Vendor Spend Analysis SOP",
	"version": "1.0",
	"sections": [
		{
			"id": "data-collection",
			"title": "Data Collection",
			"items": [
				{"id": "vendor-name", "label": "Vendor name captured", "mustHave": true},
				{"id": "invoice-total", "label": "Invoice totals reconciled", "mustHave": true},
				{"id": "spend-category", "label": "Spend category assigned", "categorization": true}
			]
		},
		{
			"id": "review",
			"title": "Review",
			"items": [
				{"id": "peer-review", "label": "Peer review complete"}
			]
		}
	]
}`

func TestLoadValidChecklist(t *testing.T) {
	checklist, err := Load(writeChecklist(t, validChecklist))
	require.NoError(t, err)

	assert.Equal(t, "Vendor Spend Analysis SOP", checklist.Title)
	assert.Len(t, checklist.Sections, 2)
	assert.Equal(t, []string{"vendor-name", "invoice-total", "spend-category", "peer-review"}, checklist.ItemIDs())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeChecklist(t, `{"sections": [`))
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	body := `{
		"sections": [
			{"id": "a", "title": "A", "items": [{"id": "x", "label": "one"}]},
			{"id": "b", "title": "B", "items": [{"id": "x", "label": "two"}]}
		]
	}`
	_, err := Load(writeChecklist(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate item id")
}

func TestValidateRejectsDoubleBucketedItem(t *testing.T) {
	body := `{
		"sections": [
			{"id": "a", "title": "A", "items": [
				{"id": "x", "label": "one", "mustHave": true, "categorization": true}
			]}
		]
	}`
	_, err := Load(writeChecklist(t, body))
	assert.Error(t, err)
}

func TestValidateRejectsEmptyChecklist(t *testing.T) {
	_, err := Load(writeChecklist(t, `{"sections": []}`))
	assert.Error(t, err)
}

func TestTrackerConfigDerivesBuckets(t *testing.T) {
	checklist, err := Load(writeChecklist(t, validChecklist))
	require.NoError(t, err)

	config := checklist.TrackerConfig()
	assert.Equal(t, []string{"vendor-name", "invoice-total"}, config.MustHave)
	assert.Equal(t, []string{"spend-category"}, config.Categorization)
	assert.NoError(t, config.Validate())
}

func TestSectionItemIDs(t *testing.T) {
	checklist, err := Load(writeChecklist(t, validChecklist))
	require.NoError(t, err)

	assert.Equal(t, []string{"peer-review"}, checklist.SectionItemIDs("review"))
	assert.Nil(t, checklist.SectionItemIDs("missing"))
}

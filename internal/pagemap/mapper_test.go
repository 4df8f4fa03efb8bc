package pagemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

func TestIdentityMapper(t *testing.T) {
	m := NewIdentityMapper()

	for _, page := range []int{1, 42, 999} {
		res := m.Resolve(page)
		require.NotNil(t, res.Page)
		assert.Equal(t, page, *res.Page)
		assert.False(t, res.LowConfidence)
	}
}

func TestOffsetMapperClampsToOne(t *testing.T) {
	// Given an offset larger than the early physical pages
	m := NewOffsetMapper(10)

	tests := []struct {
		pdfPage int
		want    int
	}{
		{1, 1},  // would be -9, clamps
		{10, 1}, // would be 0, clamps
		{11, 1},
		{12, 2},
		{100, 90},
	}
	for _, tt := range tests {
		res := m.Resolve(tt.pdfPage)
		require.NotNil(t, res.Page, "pdf page %d", tt.pdfPage)
		assert.Equal(t, tt.want, *res.Page, "pdf page %d", tt.pdfPage)
	}
}

func TestSamplesMapperInterpolation(t *testing.T) {
	// Given anchors with a constant offset of 14
	m := NewSamplesMapper([]Anchor{
		{PDF: 15, Print: intPtr(1)},
		{PDF: 100, Print: intPtr(86)},
		{PDF: 200, Print: intPtr(186)},
	})

	// When resolving pages between the anchors
	// Then the offset interpolates exactly and confidence stays high
	for _, pdfPage := range []int{15, 50, 100, 150, 200} {
		res := m.Resolve(pdfPage)
		require.NotNil(t, res.Page)
		assert.Equal(t, pdfPage-14, *res.Page)
		assert.False(t, res.LowConfidence)
	}
}

func TestSamplesMapperMonotoneWithinRegularZone(t *testing.T) {
	// Between anchors that agree in offset, print pages must strictly
	// increase with the physical page.
	m := NewSamplesMapper([]Anchor{
		{PDF: 10, Print: intPtr(1)},
		{PDF: 300, Print: intPtr(291)},
	})

	prev := 0
	for pdfPage := 10; pdfPage <= 300; pdfPage++ {
		res := m.Resolve(pdfPage)
		require.NotNil(t, res.Page, "pdf page %d", pdfPage)
		assert.Greater(t, *res.Page, prev, "pdf page %d", pdfPage)
		prev = *res.Page
	}
}

func TestSamplesMapperIrregularZone(t *testing.T) {
	// Given anchors that disagree in offset (two plates inserted between)
	m := NewSamplesMapper([]Anchor{
		{PDF: 10, Print: intPtr(1)},
		{PDF: 50, Print: intPtr(39)}, // offset 11, not 9
	})

	// When resolving inside the gap
	res := m.Resolve(30)

	// Then the earlier anchor's offset applies and the page is flagged
	require.NotNil(t, res.Page)
	assert.Equal(t, 21, *res.Page)
	assert.True(t, res.LowConfidence)

	// Anchor pages themselves stay exact
	at := m.Resolve(10)
	require.NotNil(t, at.Page)
	assert.Equal(t, 1, *at.Page)
	assert.False(t, at.LowConfidence)
}

func TestSamplesMapperExtrapolation(t *testing.T) {
	m := NewSamplesMapper([]Anchor{
		{PDF: 15, Print: intPtr(1)},
		{PDF: 100, Print: intPtr(86)},
	})

	t.Run("before first anchor resolves to nil frontmatter", func(t *testing.T) {
		for pdfPage := 1; pdfPage < 15; pdfPage++ {
			res := m.Resolve(pdfPage)
			assert.Nil(t, res.Page, "pdf page %d", pdfPage)
		}
	})

	t.Run("after last anchor extends the last offset", func(t *testing.T) {
		res := m.Resolve(250)
		require.NotNil(t, res.Page)
		assert.Equal(t, 236, *res.Page)
	})
}

func TestSamplesMapperNilAnchors(t *testing.T) {
	// Anchors with nil Print mark plates explicitly
	m := NewSamplesMapper([]Anchor{
		{PDF: 10, Print: intPtr(1)},
		{PDF: 25, Print: nil, Note: "Tafel"},
		{PDF: 40, Print: intPtr(31)},
	})

	res := m.Resolve(25)
	assert.Nil(t, res.Page)

	res = m.Resolve(26)
	require.NotNil(t, res.Page)
	assert.Equal(t, 17, *res.Page)
}

func TestFullMapper(t *testing.T) {
	m := NewFullMapper(map[int]*int{
		1: nil,
		2: intPtr(1),
		3: intPtr(2),
	})

	assert.Nil(t, m.Resolve(1).Page)
	require.NotNil(t, m.Resolve(2).Page)
	assert.Equal(t, 1, *m.Resolve(2).Page)

	// Pages absent from the table are unmapped, not identity
	assert.Nil(t, m.Resolve(99).Page)
}

func TestResolveSpreadGenericFormula(t *testing.T) {
	m := NewOffsetMapper(2)

	left, right := m.ResolveSpread(3)
	require.NotNil(t, left)
	require.NotNil(t, right)
	assert.Equal(t, 1, *left)
	assert.Equal(t, 2, *right)

	left, right = m.ResolveSpread(10)
	require.NotNil(t, left)
	assert.Equal(t, 15, *left)
	assert.Equal(t, 16, *right)

	// Cover page precedes the numbered body
	left, right = m.ResolveSpread(1)
	assert.Nil(t, left)
	assert.Nil(t, right)
}

func TestTREBand4SpreadTable(t *testing.T) {
	fn := SpreadTableFor("TRE", 4)
	require.NotNil(t, fn)

	tests := []struct {
		name    string
		pdfPage int
		left    *int
		right   *int
	}{
		{"cover", 1, nil, nil},
		{"half title", 2, nil, intPtr(1)},
		{"regular early", 3, intPtr(2), intPtr(3)},
		{"last before blank", 88, intPtr(172), intPtr(173)},
		{"blank right half", 89, intPtr(174), nil},
		{"blank left half", 90, nil, intPtr(175)},
		{"shifted once", 91, intPtr(176), intPtr(177)},
		{"last before plate", 266, intPtr(526), intPtr(527)},
		{"plate right half", 267, intPtr(528), nil},
		{"plate left half", 268, nil, intPtr(529)},
		{"shifted twice", 269, intPtr(530), intPtr(531)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := fn(tt.pdfPage)
			assertPagePtr(t, tt.left, left, "left")
			assertPagePtr(t, tt.right, right, "right")
		})
	}
}

func TestTREBand5SpreadTable(t *testing.T) {
	fn := SpreadTableFor("tre", 5)
	require.NotNil(t, fn)

	tests := []struct {
		pdfPage int
		left    *int
		right   *int
	}{
		{125, intPtr(246), intPtr(247)},
		{126, intPtr(248), nil},
		{127, nil, nil},
		{128, nil, intPtr(249)},
		{129, intPtr(250), intPtr(251)},
		{260, intPtr(512), nil},
		{261, nil, nil},
		{262, nil, nil},
		{263, nil, intPtr(513)},
		{264, intPtr(514), intPtr(515)},
	}
	for _, tt := range tests {
		left, right := fn(tt.pdfPage)
		assertPagePtr(t, tt.left, left, "left of %d", tt.pdfPage)
		assertPagePtr(t, tt.right, right, "right of %d", tt.pdfPage)
	}
}

func TestTableMapperWrapsLookupFunction(t *testing.T) {
	m := NewTableMapper(OffsetTableFor("Barth_KD_IV-4"))
	require.Equal(t, ModeFull, m.Mode())

	// Unnumbered frontmatter resolves to nil, body pages follow the table
	assert.Nil(t, m.Resolve(12).Page)
	res := m.Resolve(13)
	require.NotNil(t, res.Page)
	assert.Equal(t, 2, *res.Page)
}

func TestSpreadTableForUnknownVolume(t *testing.T) {
	assert.Nil(t, SpreadTableFor("TRE", 7))
	assert.Nil(t, SpreadTableFor("RGG", 4))
}

func TestOffsetTableForKDVolumes(t *testing.T) {
	t.Run("II-2 piecewise offsets", func(t *testing.T) {
		fn := OffsetTableFor("Barth_KD_II-2")
		require.NotNil(t, fn)

		assert.Nil(t, fn(9))
		assertPageVal(t, 1, fn(10))
		assertPageVal(t, 707, fn(716))
		assertPageVal(t, 707, fn(717)) // offset shifts by one
		assertPageVal(t, 864, fn(874))
		assertPageVal(t, 863, fn(875))
		assertPageVal(t, 873, fn(885))
		assertPageVal(t, 875, fn(886))
	})

	t.Run("IV-4 single offset", func(t *testing.T) {
		fn := OffsetTableFor("kd_iv.4_fragment")
		require.NotNil(t, fn)

		assert.Nil(t, fn(12))
		assertPageVal(t, 2, fn(13))
		assertPageVal(t, 89, fn(100))
	})

	t.Run("unrelated stems match nothing", func(t *testing.T) {
		assert.Nil(t, OffsetTableFor("Barth_KD_I-1"))
		assert.Nil(t, OffsetTableFor("TRE_Bd4"))
	})
}

func TestWithSpreadTableTakesPriority(t *testing.T) {
	m := NewOffsetMapper(2).WithSpreadTable(treBd4Pages)

	left, right := m.ResolveSpread(89)
	require.NotNil(t, left)
	assert.Equal(t, 174, *left)
	assert.Nil(t, right)
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "/in/TRE_Bd4.mapping.json", SidecarPath("/in/TRE_Bd4.pdf"))
	assert.Equal(t, "notes.mapping.json", SidecarPath("notes.md"))
}

func TestLoadSidecar(t *testing.T) {
	dir := t.TempDir()

	writeSidecar := func(t *testing.T, stem, content string) string {
		t.Helper()
		doc := filepath.Join(dir, stem+".pdf")
		require.NoError(t, os.WriteFile(SidecarPath(doc), []byte(content), 0o644))
		return doc
	}

	t.Run("missing sidecar is not an error", func(t *testing.T) {
		m, err := LoadSidecar(filepath.Join(dir, "absent.pdf"))
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("samples sidecar", func(t *testing.T) {
		doc := writeSidecar(t, "samples", `{
			"type": "samples",
			"total_pages": 500,
			"samples": [
				{"pdf": 15, "print": 1},
				{"pdf": 30, "print": null, "note": "Tafel"},
				{"pdf": 100, "print": 86}
			]
		}`)

		m, err := LoadSidecar(doc)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, ModeSamples, m.Mode())

		res := m.Resolve(50)
		require.NotNil(t, res.Page)
		assert.Equal(t, 36, *res.Page)
		assert.Nil(t, m.Resolve(30).Page)
	})

	t.Run("offset sidecar", func(t *testing.T) {
		doc := writeSidecar(t, "offset", `{"type": "offset", "offset": 11}`)

		m, err := LoadSidecar(doc)
		require.NoError(t, err)
		assert.Equal(t, ModeOffset, m.Mode())
		assert.Equal(t, 11, m.Offset())
	})

	t.Run("full sidecar", func(t *testing.T) {
		doc := writeSidecar(t, "full", `{"type": "full", "pages": {"1": null, "2": 1}}`)

		m, err := LoadSidecar(doc)
		require.NoError(t, err)
		assert.Equal(t, ModeFull, m.Mode())
		assert.Nil(t, m.Resolve(1).Page)
		require.NotNil(t, m.Resolve(2).Page)
		assert.Equal(t, 1, *m.Resolve(2).Page)
	})

	t.Run("malformed sidecar reports validation error", func(t *testing.T) {
		doc := writeSidecar(t, "broken", `{"type": "samples", "samples": [`)

		_, err := LoadSidecar(doc)
		require.Error(t, err)
		assert.Equal(t, pipeerr.ErrCodeInvalidMapping, pipeerr.GetCode(err))
	})

	t.Run("unknown mapping type rejected", func(t *testing.T) {
		doc := writeSidecar(t, "weird", `{"type": "telepathic"}`)

		_, err := LoadSidecar(doc)
		require.Error(t, err)
		assert.Equal(t, pipeerr.ErrCodeInvalidMapping, pipeerr.GetCode(err))
	})
}

func assertPagePtr(t *testing.T, want, got *int, msgAndArgs ...any) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, msgAndArgs...)
		return
	}
	require.NotNil(t, got, msgAndArgs...)
	assert.Equal(t, *want, *got, msgAndArgs...)
}

func assertPageVal(t *testing.T, want int, got *int) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

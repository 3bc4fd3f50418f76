package authoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmd-analytics/reportbuilder/internal/catalog"
)

func TestScriptSessionCompilesCalls(t *testing.T) {
	ctx := context.Background()
	page := Page{Name: "ReportSection1", DisplayName: "Executive Command Center", Ordinal: 0}
	s := NewScriptSession([]Page{page})

	assert.False(t, s.Active(), "no page selected yet")
	require.NoError(t, s.SetActive(ctx, page))
	assert.True(t, s.Active())

	h, err := s.CreateVisual(ctx, "card", catalog.Rect(40, 160, 340, 150))
	require.NoError(t, err)
	assert.Equal(t, Handle("v1"), h)
	require.NoError(t, s.AddDataField(ctx, h, "Values", catalog.Measure("Fact_Visit", "Total Visits")))
	require.NoError(t, s.SetProperty(ctx, h, TitleText, Text("VISITS")))
	require.NoError(t, s.Save(ctx))

	script := s.Script()
	assert.Contains(t, script, `page = pageNamed("ReportSection1");`)
	assert.Contains(t, script, `await step("activate Executive Command Center", () => page.setActive());`)
	assert.Contains(t, script, `const v1 = await step("create v1 card", async () => (await page.createVisual("card", {"x":40,"y":160,"width":340,"height":150})).visual);`)
	assert.Contains(t, script, `v1.addDataField("Values", {"$schema":"http://powerbi.com/product/schema#measure","table":"Fact_Visit","measure":"Total Visits"})`)
	assert.Contains(t, script, `v1.setProperty({"objectName":"title","propertyName":"titleText"}, {"schema":"text","value":"VISITS"})`)
	assert.Contains(t, script, `await step("save report", () => report.save());`)
	assert.Equal(t, 1, s.Visuals())
}

func TestScriptSessionFreshReport(t *testing.T) {
	ctx := context.Background()
	s := NewScriptSession(nil)

	pages, err := s.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Page 1", pages[0].DisplayName)

	require.NoError(t, s.SetActive(ctx, pages[0]))
	assert.Contains(t, s.Script(), "page = pages[0];")
}

func TestScriptSessionErrors(t *testing.T) {
	ctx := context.Background()
	s := NewScriptSession([]Page{{Name: "A", Ordinal: 0}})

	_, err := s.CreateVisual(ctx, "card", catalog.Rect(0, 0, 10, 10))
	assert.ErrorIs(t, err, ErrNoPage)

	err = s.SetActive(ctx, Page{Name: "B", Ordinal: 1})
	assert.ErrorIs(t, err, ErrUnknownPage)

	err = s.AddDataField(ctx, "v9", "Values", catalog.Measure("T", "M"))
	assert.ErrorIs(t, err, ErrUnknownHandle)

	err = s.SetProperty(ctx, "v9", TitleText, Text("x"))
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestScriptSessionEscapesStrings(t *testing.T) {
	ctx := context.Background()
	page := Page{Name: "P", DisplayName: "Bad\nName</script>", Ordinal: 0}
	s := NewScriptSession([]Page{page})
	require.NoError(t, s.SetActive(ctx, page))

	h, err := s.CreateVisual(ctx, "textbox", catalog.Rect(0, 0, 10, 10))
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(ctx, h, TitleText, Text(`"</script><script>alert(1)`)))

	script := s.Script()
	assert.NotContains(t, script, "</script>")
	assert.Contains(t, script, `// page "Bad\nName\u003c/script\u003e"`)
	assert.Contains(t, script, `{"schema":"text","value":"\"\u003c/script\u003e\u003cscript\u003ealert(1)"}`)
}

func TestScriptPacerEmitsSleeps(t *testing.T) {
	s := NewScriptSession(nil)
	p := s.Pacer(400 * time.Millisecond)

	require.NoError(t, p.Wait(context.Background()))
	p.Observe(nil)
	assert.Equal(t, "await sleep(400);\n", s.Script())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}

package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/report"
)

type stubDriver struct {
	inputs   []string
	confirms []bool
	prompts  []string
	inputPos int
	confPos  int
	failAt   int // 1-based input index that fails; 0 disables
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.failAt > 0 && s.inputPos+1 == s.failAt {
		return "", errors.New("stdin closed")
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confPos >= len(s.confirms) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirms[s.confPos]
	s.confPos++
	return val, nil
}

func newCollector(driver PromptDriver, out *bytes.Buffer) *Collector {
	return &Collector{
		Engine:   placeholder.NewEngine(map[string]string{"root": "/srv"}),
		Driver:   driver,
		Reporter: report.New(out),
	}
}

func TestCollectTransformerScenario(t *testing.T) {
	def := &Definition{Fields: []Field{
		{Name: "title", Prompt: "Title?"},
		{Name: "slug", Prompt: "Slug?", Transformer: "{{title}}-slug"},
	}}
	driver := &stubDriver{inputs: []string{"Hello", "Hello"}}

	bag, err := newCollector(driver, &bytes.Buffer{}).Collect(context.Background(), def)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]string{"title": "Hello", "slug": "Hello-slug"}, bag.Map()); diff != "" {
		t.Errorf("bag mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"title", "slug"}, bag.Keys())
}

func TestCollectPromptSeesEarlierFields(t *testing.T) {
	def := &Definition{Fields: []Field{
		{Name: "name", Prompt: "Name?"},
		{Name: "dir", Prompt: "Directory for {{name}} under @root{{ (!dir)}}?"},
	}}
	driver := &stubDriver{inputs: []string{"widget", "lib"}}

	_, err := newCollector(driver, &bytes.Buffer{}).Collect(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name?", "Directory for widget under /srv?"}, driver.prompts)
}

func TestCollectTransformerReferencesSelf(t *testing.T) {
	def := &Definition{Fields: []Field{
		{Name: "title", Prompt: "Title?", Required: true},
		{Name: "slug", Prompt: "Slug (blank to derive)?", Transformer: "{{slug}}{{title|slug}}"},
	}}

	t.Run("derived when blank", func(t *testing.T) {
		driver := &stubDriver{inputs: []string{"My New Page", ""}}
		bag, err := newCollector(driver, &bytes.Buffer{}).Collect(context.Background(), def)
		require.NoError(t, err)
		v, _ := bag.Get("slug")
		assert.Equal(t, "my-new-page", v)
	})
}

func TestCollectRequiredLoops(t *testing.T) {
	def := &Definition{Fields: []Field{{Name: "name", Prompt: "Name?", Required: true}}}
	driver := &stubDriver{inputs: []string{"", "   ", "Ada"}}
	var out bytes.Buffer

	bag, err := newCollector(driver, &out).Collect(context.Background(), def)
	require.NoError(t, err)
	v, _ := bag.Get("name")
	assert.Equal(t, "Ada", v)
	assert.Equal(t, []string{"Name?", "Name?", "Name?"}, driver.prompts)
	assert.Equal(t, 2, strings.Count(out.String(), "error: a value for name is required"))
}

func TestCollectAbsentFieldIsDeleted(t *testing.T) {
	def := &Definition{Fields: []Field{
		{Name: "suffix", Prompt: "Suffix?"},
		{Name: "label", Prompt: "Label?", Transformer: "{{label}}{{-!suffix}}"},
		{Name: "tail", Prompt: "Tail?", Transformer: "x{{-suffix}}"},
	}}
	driver := &stubDriver{inputs: []string{"", "name", ""}}

	bag, err := newCollector(driver, &bytes.Buffer{}).Collect(context.Background(), def)
	require.NoError(t, err)

	_, hasSuffix := bag.Get("suffix")
	assert.False(t, hasSuffix, "blank optional answer leaves the field missing")
	_, hasLabel := bag.Get("label")
	assert.False(t, hasLabel, "transformer with a missing required reference removes the field")
	tail, _ := bag.Get("tail")
	assert.Equal(t, "x", tail)
}

func TestCollectReadFailureAborts(t *testing.T) {
	def := &Definition{Fields: []Field{
		{Name: "a", Prompt: "A?"},
		{Name: "b", Prompt: "B?"},
		{Name: "c", Prompt: "C?"},
	}}
	driver := &stubDriver{inputs: []string{"1", "2", "3"}, failAt: 2}

	bag, err := newCollector(driver, &bytes.Buffer{}).Collect(context.Background(), def)
	assert.Nil(t, bag)
	assert.ErrorContains(t, err, `field "b": stdin closed`)
	assert.Len(t, driver.prompts, 2, "no prompt after the failure")
}

func TestLineDriver(t *testing.T) {
	var out bytes.Buffer
	d := NewLineDriver(strings.NewReader("Ada\n\nmaybe\ny\n"), &out)
	ctx := context.Background()

	v, err := d.Input(ctx, InputConfig{Message: "Name?"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	v, err = d.Input(ctx, InputConfig{Message: "Dir?", Default: "src"})
	require.NoError(t, err)
	assert.Equal(t, "src", v)

	ok, err := d.Confirm(ctx, ConfirmConfig{Message: "Write?"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Please answer yes or no.")

	_, err = d.Input(ctx, InputConfig{Message: "More?"})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

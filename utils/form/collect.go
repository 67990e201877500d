package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/placeholder"
	"github.com/kris-hansen/runa/utils/report"
	"github.com/kris-hansen/runa/utils/runner"
)

// Collector asks for each field of a definition in order and builds the bag.
type Collector struct {
	Engine   *placeholder.Engine
	Driver   PromptDriver
	Reporter *report.Reporter // optional; receives empty-answer errors
}

// Collect asks every field in declaration order. Prompts may reference
// earlier fields. A read failure aborts the collection and no bag is
// returned.
func (c *Collector) Collect(ctx context.Context, def *Definition) (*placeholder.Bag, error) {
	bag := placeholder.NewBag()
	_, err := runner.Each(ctx, def.Fields, func(ctx context.Context, f Field, _ int) (struct{}, error) {
		return struct{}{}, c.collectField(ctx, bag, f)
	})
	if err != nil {
		return nil, err
	}
	config.VerboseLog("[Form] collected %d value(s): %s", bag.Len(), strings.Join(bag.Keys(), ", "))
	return bag, nil
}

// collectField stores the answer under the field name, then replaces it with
// the transformer result. An absent transformer result removes the key so
// later required references see the field as missing.
func (c *Collector) collectField(ctx context.Context, bag *placeholder.Bag, f Field) error {
	prompt, _ := c.Engine.Resolve(f.Prompt, bag)

	answer, err := c.ask(ctx, f, prompt)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	if answer == "" {
		bag.Delete(f.Name)
	} else {
		bag.Set(f.Name, answer)
	}

	value, ok := c.Engine.Resolve(f.EffectiveTransformer(), bag)
	if !ok {
		config.DebugLog("[Form] %s resolved absent", f.Name)
		bag.Delete(f.Name)
		return nil
	}
	config.DebugLog("[Form] %s = %q", f.Name, value)
	bag.Set(f.Name, value)
	return nil
}

// ask reads one answer. Required fields repeat the same prompt until the
// answer is not blank.
func (c *Collector) ask(ctx context.Context, f Field, prompt string) (string, error) {
	for {
		answer, err := c.Driver.Input(ctx, InputConfig{Message: prompt})
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer != "" || !f.Required {
			return answer, nil
		}
		if c.Reporter != nil {
			c.Reporter.Printf(report.Error, "a value for %s is required", f.Name)
		}
	}
}

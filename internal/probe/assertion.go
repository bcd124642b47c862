package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethpandaops/pageprobe/internal/browser"
)

const (
	detailTextNotFound     = "Text not found in page content"
	detailSelectorNotFound = "Selector not found"
)

// evaluateAssertions runs defs against the loaded page. The content is read
// once; a failed read is returned as an error. Definitions without a kind or
// value are skipped, and the verdict is empty when nothing was evaluated.
func evaluateAssertions(ctx context.Context, page browser.Page, defs []AssertionDefinition, state *runState) ([]AssertionResult, Verdict, error) {
	content, err := page.Content(ctx)
	if err != nil {
		return nil, "", err
	}

	results := make([]AssertionResult, 0, len(defs))

	for _, def := range defs {
		if def.Kind == "" || def.Value == "" {
			continue
		}

		result := AssertionResult{AssertionDefinition: def}

		switch def.Kind {
		case AssertTextIncludes:
			result.Passed = strings.Contains(content, def.Value)
			if !result.Passed {
				result.Details = detailTextNotFound
			}
		case AssertSelectorExists:
			found, qerr := page.QuerySelector(ctx, def.Value)

			switch {
			case qerr != nil:
				result.Details = qerr.Error()
				state.addError(fmt.Sprintf("assertion_error:%s:%s", def.ID, qerr.Error()))
			case found:
				result.Passed = true
			default:
				result.Details = detailSelectorNotFound
			}
		default:
			result.Details = fmt.Sprintf("Unsupported assertion kind %q", def.Kind)
		}

		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, "", nil
	}

	verdict := VerdictPass

	for _, r := range results {
		if !r.Passed {
			verdict = VerdictFail

			break
		}
	}

	return results, verdict, nil
}

package tool_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/tool"
)

func TestNormalizeArguments(t *testing.T) {
	t.Run("mapping passes through", func(t *testing.T) {
		args, err := tool.NormalizeArguments(map[string]any{"a": 1.0})
		gt.NoError(t, err)
		gt.V(t, args["a"]).Equal(1.0)
	})

	t.Run("single-element array is flattened", func(t *testing.T) {
		args, err := tool.NormalizeArguments([]any{map[string]any{"a": 1.0, "b": 2.0}})
		gt.NoError(t, err)
		gt.V(t, args["a"]).Equal(1.0)
		gt.V(t, args["b"]).Equal(2.0)
	})

	t.Run("serialized wrapped mapping", func(t *testing.T) {
		args, err := tool.NormalizeArguments(`[{"a":1,"b":2}]`)
		gt.NoError(t, err)
		gt.V(t, args["a"]).Equal(1.0)
		gt.V(t, args["b"]).Equal(2.0)
	})

	t.Run("nil means no arguments", func(t *testing.T) {
		args, err := tool.NormalizeArguments(nil)
		gt.NoError(t, err)
		gt.V(t, len(args)).Equal(0)
	})

	t.Run("multi-element array is malformed", func(t *testing.T) {
		_, err := tool.NormalizeArguments([]any{map[string]any{"a": 1.0}, map[string]any{"b": 2.0}})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, tool.ErrMalformedArguments))
	})

	t.Run("scalar is malformed", func(t *testing.T) {
		_, err := tool.NormalizeArguments(`42`)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, tool.ErrMalformedArguments))
	})

	t.Run("invalid JSON is malformed", func(t *testing.T) {
		_, err := tool.NormalizeArguments(`{"a":`)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, tool.ErrMalformedArguments))
	})
}

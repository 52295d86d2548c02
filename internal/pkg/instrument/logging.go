package instrument

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const maskedValue = "***"

func setupLogging(cfg Config, lp *sdklog.LoggerProvider) {
	var h slog.Handler = newStdoutHandler(os.Stdout)
	if lp != nil {
		h = fanout{h, otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))}
	}

	mask := make(map[string]struct{}, len(cfg.MaskFields))
	for _, f := range cfg.MaskFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			mask[f] = struct{}{}
		}
	}

	slog.SetDefault(slog.New(&scoped{Handler: h, service: cfg.ServiceName, mask: mask}))
}

// newStdoutHandler writes JSON lines with "ts", "severity" and a "file"
// relative to internal/; frames outside the module carry no source.
func newStdoutHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.SourceKey:
				src, ok := a.Value.Any().(*slog.Source)
				if !ok {
					return a
				}
				_, rel, found := strings.Cut(src.File, "/internal/")
				if !found {
					return slog.Attr{}
				}
				return slog.String("file", fmt.Sprintf("internal/%s:%d", rel, src.Line))
			}
			return a
		},
	})
}

// scoped adds the service name and correlation id to every record and masks
// configured attribute keys, including keys nested in groups.
type scoped struct {
	slog.Handler
	service string
	mask    map[string]struct{}
}

func (h *scoped) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.hide(a))
		return true
	})
	if cID := GetCorrelationID(ctx); cID != "" {
		out.AddAttrs(slog.String("_cID", cID))
	}
	out.AddAttrs(slog.String("service", h.service))

	return h.Handler.Handle(ctx, out)
}

func (h *scoped) hide(a slog.Attr) slog.Attr {
	if _, ok := h.mask[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, maskedValue)
	}
	if a.Value.Kind() != slog.KindGroup {
		return a
	}

	group := a.Value.Group()
	hidden := make([]slog.Attr, len(group))
	for i, ga := range group {
		hidden[i] = h.hide(ga)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(hidden...)}
}

func (h *scoped) WithAttrs(attrs []slog.Attr) slog.Handler {
	hidden := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		hidden[i] = h.hide(a)
	}
	return &scoped{Handler: h.Handler.WithAttrs(hidden), service: h.service, mask: h.mask}
}

func (h *scoped) WithGroup(name string) slog.Handler {
	return &scoped{Handler: h.Handler.WithGroup(name), service: h.service, mask: h.mask}
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if herr := h.Handle(ctx, r.Clone()); herr != nil && err == nil {
				err = herr
			}
		}
	}
	return err
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

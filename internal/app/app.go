// Package app implements the sqrich command line: creating, inspecting,
// editing and syncing .sqdoc documents.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"sqrich/internal/config"
	"sqrich/internal/editor"
	"sqrich/internal/markdown"
	"sqrich/internal/store"
	"sqrich/pkg/sqdoc"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage error")

type command struct {
	name string
	args string
	help string
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"new", "<file>", "create a document", (*App).cmdNew},
	{"cat", "<file>", "print the plain text", (*App).cmdCat},
	{"runs", "<file>", "print paragraphs and style spans", (*App).cmdRuns},
	{"info", "<file>", "print metadata, envelope and container layout", (*App).cmdInfo},
	{"import", "<in.md> <out.sqdoc>", "convert Markdown to a document", (*App).cmdImport},
	{"insert", "<file>", "insert text at an offset", (*App).cmdInsert},
	{"delete", "<file>", "delete a range", (*App).cmdDelete},
	{"style", "<file>", "restyle a range", (*App).cmdStyle},
	{"copy", "<file>", "copy text to the clipboard", (*App).cmdCopy},
	{"push", "<file> <id>", "upload a document to the store", (*App).cmdPush},
	{"pull", "<id> <file>", "download a document from the store", (*App).cmdPull},
	{"list", "", "list stored documents", (*App).cmdList},
	{"rm", "<id>", "remove a stored document", (*App).cmdRemove},
}

type App struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	cfg    *config.Config

	writeClipboard func(string) error
}

func New(stdout, stderr io.Writer) *App {
	return &App{
		stdout:         stdout,
		stderr:         stderr,
		log:            slog.New(slog.NewTextHandler(stderr, nil)),
		writeClipboard: clipboard.WriteAll,
	}
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}
	switch args[0] {
	case "help", "-h", "--help":
		a.usage()
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	a.usage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (a *App) usage() {
	fmt.Fprintln(a.stderr, "usage: sqrich <command> [flags] [args]")
	fmt.Fprintln(a.stderr)
	for _, c := range commands {
		fmt.Fprintf(a.stderr, "  %-7s %-20s %s\n", c.name, c.args, c.help)
	}
}

// parse parses the command's flags, loads the configuration and builds the
// logger. It requires exactly nargs positional arguments.
func (a *App) parse(name string, args []string, nargs int, define func(fs *pflag.FlagSet)) ([]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	config.RegisterFlags(fs)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != nargs {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, name, nargs, fs.NArg())
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.log = newLogger(a.stderr, cfg).With("command", name)
	return fs.Args(), nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *App) load(path string) (*sqdoc.Document, error) {
	doc, err := sqdoc.LoadWithOptions(path, a.cfg.LoadOptions())
	switch {
	case errors.Is(err, sqdoc.ErrPasswordRequired):
		return nil, fmt.Errorf("%s is encrypted, pass --password: %w", path, err)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	a.log.Debug("loaded", "path", path, "blocks", len(doc.Blocks))
	return doc, nil
}

func (a *App) save(path string, doc *sqdoc.Document) error {
	opts := a.cfg.SaveOptions()
	if err := sqdoc.SaveWithOptions(path, doc, opts); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	a.log.Info("saved", "path", path, "paragraphs", len(doc.Blocks),
		"compressed", opts.Compression, "encrypted", opts.Encryption.Enabled)
	return nil
}

func (a *App) session(doc *sqdoc.Document) (*editor.Session, error) {
	return editor.NewSession(doc, a.cfg.EditorOptions())
}

// edit loads path into a session, runs fn and saves the result.
func (a *App) edit(path string, fn func(s *editor.Session) error) error {
	doc, err := a.load(path)
	if err != nil {
		return err
	}
	s, err := a.session(doc)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := fn(s); err != nil {
		return err
	}
	return a.save(path, s.Snapshot())
}

// rangeFlags registers --from and --to; a negative --to means the end of
// the document.
func rangeFlags(fs *pflag.FlagSet, from, to *int) {
	fs.IntVar(from, "from", 0, "range start offset")
	fs.IntVar(to, "to", -1, "range end offset (default: end of document)")
}

func resolveRange(s *editor.Session, from, to int) (int, int, error) {
	n := s.Document().Len()
	if to < 0 {
		to = n
	}
	if from < 0 || from > to || to > n {
		return 0, 0, fmt.Errorf("%w: range [%d, %d) outside document of length %d", ErrUsage, from, to, n)
	}
	return from, to, nil
}

func (a *App) cmdNew(ctx context.Context, args []string) error {
	var title, text string
	pos, err := a.parse("new", args, 1, func(fs *pflag.FlagSet) {
		fs.StringVar(&title, "title", "Untitled", "document title")
		fs.StringVar(&text, "text", "", "initial text")
	})
	if err != nil {
		return err
	}
	s, err := a.session(sqdoc.NewDocument(a.cfg.Author, title))
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.InsertText(text); err != nil {
		return err
	}
	return a.save(pos[0], s.Snapshot())
}

func (a *App) cmdCat(ctx context.Context, args []string) error {
	pos, err := a.parse("cat", args, 1, nil)
	if err != nil {
		return err
	}
	doc, err := a.load(pos[0])
	if err != nil {
		return err
	}
	s, err := a.session(doc)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintln(a.stdout, s.Document().Text())
	return nil
}

func (a *App) cmdRuns(ctx context.Context, args []string) error {
	pos, err := a.parse("runs", args, 1, nil)
	if err != nil {
		return err
	}
	doc, err := a.load(pos[0])
	if err != nil {
		return err
	}
	rd, err := doc.ToRich(a.cfg.DocumentOptions())
	if err != nil {
		return err
	}
	for i, p := range rd.Paragraphs() {
		fmt.Fprintf(a.stdout, "%d %s %q\n", i, formatParagraphAttr(p.Style()), p.Text())
		col := 0
		for _, sp := range p.Spans().Spans() {
			fmt.Fprintf(a.stdout, "  [%d,%d) %s\n", col, col+sp.Length, formatStyleAttr(sp.Style))
			col += sp.Length
		}
	}
	return nil
}

func (a *App) cmdInfo(ctx context.Context, args []string) error {
	pos, err := a.parse("info", args, 1, nil)
	if err != nil {
		return err
	}
	env, err := sqdoc.InspectEnvelope(pos[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "envelope: wrapped=%t compressed=%t encrypted=%t\n", env.Wrapped, env.Compressed, env.Encrypted)
	if env.Encrypted && a.cfg.Codec.Password == "" {
		return nil
	}
	doc, err := a.load(pos[0])
	if err != nil {
		return err
	}
	m := doc.Metadata
	fmt.Fprintf(a.stdout, "id: %s\ntitle: %q\nauthor: %q\nparagraphs: %d\n", m.DocumentID, m.Title, m.Author, len(doc.Blocks))

	info, err := sqdoc.InspectLayout(doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "layout: %dB, index %dB @%d\n", info.FileSize, info.IndexLength, info.IndexOffset)
	for _, seg := range info.Segments {
		fmt.Fprintf(a.stdout, "  %s (%dB @%d)\n", seg.Name, seg.Length, seg.Offset)
	}
	return nil
}

func (a *App) cmdImport(ctx context.Context, args []string) error {
	var title string
	pos, err := a.parse("import", args, 2, func(fs *pflag.FlagSet) {
		fs.StringVar(&title, "title", "", "document title (default: input file name)")
	})
	if err != nil {
		return err
	}
	src, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}
	rd, err := markdown.ImportDocument(src, a.cfg.DocumentOptions())
	if err != nil {
		return err
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(pos[0]), ".md")
	}
	meta := sqdoc.NewDocument(a.cfg.Author, title).Metadata
	a.log.Info("imported", "source", pos[0], "paragraphs", rd.ParagraphCount())
	return a.save(pos[1], sqdoc.FromRich(meta, rd))
}

func (a *App) cmdInsert(ctx context.Context, args []string) error {
	var at int
	var text string
	pos, err := a.parse("insert", args, 1, func(fs *pflag.FlagSet) {
		fs.IntVar(&at, "at", -1, "insert offset (default: end of document)")
		fs.StringVar(&text, "text", "", "text to insert")
	})
	if err != nil {
		return err
	}
	return a.edit(pos[0], func(s *editor.Session) error {
		if at < 0 {
			at = s.Document().Len()
		}
		if at > s.Document().Len() {
			return fmt.Errorf("%w: offset %d past document length %d", ErrUsage, at, s.Document().Len())
		}
		s.SetCaret(at, false)
		return s.InsertText(text)
	})
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	var from, to int
	pos, err := a.parse("delete", args, 1, func(fs *pflag.FlagSet) { rangeFlags(fs, &from, &to) })
	if err != nil {
		return err
	}
	return a.edit(pos[0], func(s *editor.Session) error {
		start, end, err := resolveRange(s, from, to)
		if err != nil {
			return err
		}
		s.SetCaret(start, false)
		s.SetCaret(end, true)
		_, err = s.DeleteSelection()
		return err
	})
}

func (a *App) cmdStyle(ctx context.Context, args []string) error {
	var from, to int
	var sf styleFlags
	var fs *pflag.FlagSet
	pos, err := a.parse("style", args, 1, func(f *pflag.FlagSet) {
		fs = f
		rangeFlags(f, &from, &to)
		sf.register(f)
	})
	if err != nil {
		return err
	}
	change, err := sf.charChange(fs)
	if err != nil {
		return err
	}
	return a.edit(pos[0], func(s *editor.Session) error {
		start, end, err := resolveRange(s, from, to)
		if err != nil {
			return err
		}
		if change != nil && start < end {
			if err := s.Document().MapStyle(start, end, change); err != nil {
				return err
			}
		}
		s.SetCaret(start, false)
		s.SetCaret(end, true)
		return sf.applyParagraph(fs, s)
	})
}

func (a *App) cmdCopy(ctx context.Context, args []string) error {
	var from, to int
	pos, err := a.parse("copy", args, 1, func(fs *pflag.FlagSet) { rangeFlags(fs, &from, &to) })
	if err != nil {
		return err
	}
	doc, err := a.load(pos[0])
	if err != nil {
		return err
	}
	s, err := a.session(doc)
	if err != nil {
		return err
	}
	defer s.Close()
	start, end, err := resolveRange(s, from, to)
	if err != nil {
		return err
	}
	text, err := s.Document().GetText(start, end)
	if err != nil {
		return err
	}
	if err := a.writeClipboard(text); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	a.log.Info("copied", "characters", end-start)
	return nil
}

func storeFlags(fs *pflag.FlagSet, backend *string) {
	fs.StringVar(backend, "backend", "redis", "document store: redis or file")
}

// openStore connects to the configured backend. The returned func releases
// its connection.
func (a *App) openStore(ctx context.Context, backend string) (store.Store, func(), error) {
	switch backend {
	case "file":
		return store.NewFileStore(a.cfg.Store.Dir, a.cfg.StoreCodec()), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
		}
		a.log.Debug("connected", "redis", a.cfg.Redis.Addr)
		return store.NewRedisStore(rdb, a.cfg.RedisOptions()), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrUsage, backend)
	}
}

func (a *App) cmdPush(ctx context.Context, args []string) error {
	var backend string
	pos, err := a.parse("push", args, 2, func(fs *pflag.FlagSet) { storeFlags(fs, &backend) })
	if err != nil {
		return err
	}
	doc, err := a.load(pos[0])
	if err != nil {
		return err
	}
	st, closeStore, err := a.openStore(ctx, backend)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := st.Save(ctx, pos[1], doc); err != nil {
		return err
	}
	a.log.Info("pushed", "path", pos[0], "id", pos[1], "backend", backend)
	return nil
}

func (a *App) cmdPull(ctx context.Context, args []string) error {
	var backend string
	pos, err := a.parse("pull", args, 2, func(fs *pflag.FlagSet) { storeFlags(fs, &backend) })
	if err != nil {
		return err
	}
	st, closeStore, err := a.openStore(ctx, backend)
	if err != nil {
		return err
	}
	defer closeStore()
	doc, err := st.Load(ctx, pos[0])
	if err != nil {
		return err
	}
	return a.save(pos[1], doc)
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	var backend string
	if _, err := a.parse("list", args, 0, func(fs *pflag.FlagSet) { storeFlags(fs, &backend) }); err != nil {
		return err
	}
	st, closeStore, err := a.openStore(ctx, backend)
	if err != nil {
		return err
	}
	defer closeStore()
	ids, err := st.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(a.stdout, id)
	}
	return nil
}

func (a *App) cmdRemove(ctx context.Context, args []string) error {
	var backend string
	pos, err := a.parse("rm", args, 1, func(fs *pflag.FlagSet) { storeFlags(fs, &backend) })
	if err != nil {
		return err
	}
	st, closeStore, err := a.openStore(ctx, backend)
	if err != nil {
		return err
	}
	defer closeStore()
	return st.Delete(ctx, pos[0])
}

// Package cli implements the csvpermute command.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oleg578/csvpermute"
	"github.com/oleg578/csvpermute/internal/config"
	"github.com/oleg578/csvpermute/internal/logging"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ArgumentError reports invalid command line input.
type ArgumentError struct {
	Arg string
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return ExitUsage
	}
	return ExitFailure
}

// App holds the process environment of one invocation.
type App struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Clock  clockwork.Clock
}

// NewApp returns an App bound to the real filesystem and standard streams.
func NewApp() *App {
	return &App{
		Fs:     afero.NewOsFs(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Clock:  clockwork.NewRealClock(),
	}
}

// Run executes the command with args and returns the exit code. Failures
// are reported on Stderr as a single line.
func (a *App) Run(args []string) int {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd := a.Command()
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(a.Stderr, "csvpermute: %v\n", err)
	}
	return ExitCode(err)
}

const longHelp = `csvpermute reads a CSV/TSV file and writes it back with its columns (default)
or its rows (--permute_rows) randomly reordered. Values never change; only
their position does.

The first row is treated as a header and is always written unchanged, unless
--no_header is given. Columns listed in --exclude_columns, by zero-based index
or header name, keep their position in column mode. Exclusions cannot be
combined with --permute_rows; doing so fails with a mode conflict error.

Rows with a different number of fields than the first row are an error unless
--skip_ragged drops them. Output is written only after the whole table has
been permuted: an existing output file is replaced atomically or left alone.

INPUT and OUTPUT default to stdin and stdout; "-" selects them explicitly.

Every flag can also be set through a CSVPERMUTE_<FLAG> environment variable or
in a YAML config file ($HOME/.csvpermute.yaml or --config).

Exit codes: 0 success, 1 input, resolution or permutation failure, 2 invalid
arguments.`

// Command builds the cobra command. Each call returns a fresh command.
func (a *App) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csvpermute [INPUT] [OUTPUT]",
		Short: "Randomly permute the columns or rows of a CSV/TSV file",
		Long:  longHelp,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 2 {
				return &ArgumentError{Arg: "paths", Err: fmt.Errorf("accepts at most 2 args, received %d", len(args))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	cmd.SetIn(a.Stdin)
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ArgumentError{Arg: "flags", Err: err}
	})

	flags := cmd.Flags()
	flags.String(config.Delimiter, ",", `field delimiter, a single character ("\t" or "tab" for TSV)`)
	flags.String(config.QuoteChar, `"`, "quote character")
	flags.String(config.ExcludeColumns, "", "comma-separated column names or indices to keep in place (e.g. \"id,name,0\")")
	flags.Bool(config.PermuteRows, false, "permute rows instead of columns")
	flags.String(config.Encoding, csvpermute.DefaultEncoding, `text encoding of input and output (e.g. utf-8, latin-1, utf-8-sig; "auto" detects)`)
	flags.Uint64(config.Seed, 0, "seed for a reproducible permutation (default: system entropy)")
	flags.Bool(config.NoHeader, false, "treat the first row as data")
	flags.Bool(config.SkipRagged, false, "drop rows whose field count differs from the first row")
	flags.Bool(config.CRLF, false, `terminate output records with "\r\n"`)
	flags.Bool(config.QuoteAll, false, "quote every output field")
	flags.String(config.LogLevel, "info", "log level: debug, info, warn or error")
	flags.String(config.SeqURL, "", "also send logs to this Seq ingestion URL")
	flags.String("config", "", "config file (default $HOME/.csvpermute.yaml)")
	return cmd
}

// job is a validated run request.
type job struct {
	input, output string
	load          csvpermute.LoadOptions
	write         csvpermute.WriteOptions
	mode          csvpermute.Mode
	header        bool
	exclude       []csvpermute.Token
	seed          *uint64
}

func (a *App) run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetFs(a.Fs)
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(v, cmd.Flags(), configFile); err != nil {
		return &ArgumentError{Arg: "--config", Err: err}
	}
	cfg := config.Load(v)

	j, err := newJob(cfg, args)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return &ArgumentError{Arg: "--" + config.LogLevel, Err: err}
	}

	logger, closeLog := logging.Setup(logging.Options{Level: level, Writer: a.Stderr, SeqURL: cfg.SeqURL})
	defer closeLog()
	logger = logger.With("run", uuid.NewString())

	start := a.Clock.Now()
	if err := a.execute(j, logger); err != nil {
		return err
	}
	logger.Debug("done", "elapsed", a.Clock.Since(start))
	return nil
}

func newJob(cfg config.Config, args []string) (job, error) {
	comma, err := parseChar(config.Delimiter, cfg.Delimiter)
	if err != nil {
		return job{}, err
	}
	quote, err := parseChar(config.QuoteChar, cfg.QuoteChar)
	if err != nil {
		return job{}, err
	}
	if err := csvpermute.CheckDialect(comma, quote); err != nil {
		return job{}, &ArgumentError{Arg: "--" + config.Delimiter, Err: err}
	}
	if cfg.Encoding != csvpermute.AutoEncoding {
		if _, _, err := csvpermute.LookupEncoding(cfg.Encoding); err != nil {
			return job{}, &ArgumentError{Arg: "--" + config.Encoding, Err: err}
		}
	}

	j := job{
		load: csvpermute.LoadOptions{
			Comma:      comma,
			Quote:      quote,
			Encoding:   cfg.Encoding,
			SkipRagged: cfg.SkipRagged,
		},
		write: csvpermute.WriteOptions{
			Comma:       comma,
			Quote:       quote,
			UseCRLF:     cfg.CRLF,
			AlwaysQuote: cfg.QuoteAll,
		},
		mode:    csvpermute.Columns,
		header:  !cfg.NoHeader,
		exclude: csvpermute.SplitTokens(cfg.ExcludeColumns),
	}
	if cfg.PermuteRows {
		j.mode = csvpermute.Rows
	}
	if cfg.SeedSet {
		seed := cfg.Seed
		j.seed = &seed
	}
	if len(args) > 0 {
		j.input = args[0]
	}
	if len(args) > 1 {
		j.output = args[1]
	}
	return j, nil
}

// parseChar turns a flag value into a single delimiter or quote byte.
func parseChar(name, value string) (byte, error) {
	switch value {
	case `\t`, "tab":
		return '\t', nil
	}
	if len(value) != 1 {
		return 0, &ArgumentError{Arg: "--" + name, Err: fmt.Errorf("want a single character, got %q", value)}
	}
	return value[0], nil
}

func (a *App) execute(j job, logger *slog.Logger) error {
	in, closeIn, err := a.openInput(j.input)
	if err != nil {
		return err
	}
	table, err := csvpermute.Load(in, j.load)
	closeIn()
	if err != nil {
		return err
	}
	for _, record := range table.Skipped() {
		logger.Warn("skipping row with incorrect number of columns", "row", record)
	}

	if j.mode == csvpermute.Rows && len(j.exclude) > 0 {
		cols := make([]string, len(j.exclude))
		for i, tok := range j.exclude {
			cols[i] = tok.String()
		}
		return &csvpermute.ModeConflictError{Mode: j.mode, Columns: cols}
	}
	excluded, err := csvpermute.Resolve(table, j.header, j.exclude)
	if err != nil {
		return err
	}

	src, err := a.source(j.seed)
	if err != nil {
		return err
	}
	out, err := csvpermute.Permute(table, j.mode, excluded, j.header, src)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := out.Write(&buf, j.write); err != nil {
		return err
	}
	if err := a.commit(j.output, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("permuted",
		"mode", j.mode.String(),
		"input", displayPath(j.input, "stdin"),
		"output", displayPath(j.output, "stdout"),
		"rows", out.Len(),
		"columns", out.Width(),
		"excluded", excluded.Indices(),
		"encoding", table.Encoding(),
	)
	return nil
}

func (a *App) source(seed *uint64) (csvpermute.Source, error) {
	if seed != nil {
		return csvpermute.NewSeededSource(*seed), nil
	}
	return csvpermute.NewEntropySource()
}

func (a *App) openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return a.Stdin, func() {}, nil
	}
	f, err := a.Fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// commit writes data to path through a temporary file in the same directory
// followed by a rename, so path never holds a partial table.
func (a *App) commit(path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := a.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}

	tmp, err := afero.TempFile(a.Fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	name := tmp.Name()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = a.Fs.Chmod(name, a.outputMode(path))
	}
	if err == nil {
		err = a.Fs.Rename(name, path)
	}
	if err != nil {
		a.Fs.Remove(name)
		return fmt.Errorf("writing output %s: %w", path, err)
	}
	return nil
}

// outputMode keeps the permissions of a file being replaced.
func (a *App) outputMode(path string) os.FileMode {
	if fi, err := a.Fs.Stat(path); err == nil && fi.Mode().IsRegular() {
		return fi.Mode().Perm()
	}
	return 0o644
}

func displayPath(path, std string) string {
	if path == "" || path == "-" {
		return std
	}
	return path
}

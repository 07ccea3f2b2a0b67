// Command fuse runs the annotation fusion pipeline: it tokenizes verses,
// aligns and merges source annotations, scores the result, and manages the
// human review ledger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/export"
	"github.com/authenticwalk/context-grounded-bible/core/pipeline"
	"github.com/authenticwalk/context-grounded-bible/core/review"
	"github.com/authenticwalk/context-grounded-bible/core/score"
	"github.com/authenticwalk/context-grounded-bible/core/source"
	"github.com/authenticwalk/context-grounded-bible/internal/logging"
	"github.com/authenticwalk/context-grounded-bible/internal/sources/lexicon"
	"github.com/authenticwalk/context-grounded-bible/internal/sources/oshb"
)

const version = "0.1.0"

// CLI defines the command-line interface for fuse.
var CLI struct {
	// Global flags
	Config  string `help:"Fusion config YAML (defaults apply when unset)" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Merge   MergeCmd    `cmd:"" help:"Fuse verse inputs into a snapshot"`
	Extract ExtractCmd  `cmd:"" help:"Build verse inputs from OSHB OSIS XML"`
	Review  ReviewGroup `cmd:"" help:"Review ledger operations"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// ReviewGroup contains ledger operations.
type ReviewGroup struct {
	List    ReviewListCmd    `cmd:"" help:"List ledger items"`
	Approve ReviewApproveCmd `cmd:"" help:"Approve a pending item"`
	Correct ReviewCorrectCmd `cmd:"" help:"Correct a pending item with a new value"`
	Reject  ReviewRejectCmd  `cmd:"" help:"Reject a pending item"`
	Skip    ReviewSkipCmd    `cmd:"" help:"Skip a pending item"`
	Reset   ReviewResetCmd   `cmd:"" help:"Reopen a decided item as a new version"`
	Stats   ReviewStatsCmd   `cmd:"" help:"Show ledger statistics"`
}

func loadConfig() (*config.Config, error) {
	if CLI.Config == "" {
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func openLedger(path string) (*review.Ledger, *review.SQLiteStore, error) {
	store, err := review.OpenSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return review.NewLedger(store), store, nil
}

// MergeCmd fuses a file of verse inputs into a snapshot.
type MergeCmd struct {
	Input       string `arg:"" help:"JSON file of verse inputs" type:"existingfile"`
	Out         string `required:"" help:"Output snapshot path" type:"path"`
	Compression string `default:"xz" enum:"xz,gzip,none" help:"Snapshot compression"`
	Workers     int    `default:"4" help:"Concurrent verse workers"`
	Ledger      string `help:"SQLite ledger to open review items in" type:"path"`
}

func (c *MergeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}
	var inputs []pipeline.VerseInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("decode inputs: %w", err)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no verse inputs in %s", c.Input)
	}

	ctx := context.Background()
	results := pipeline.New(cfg).ProcessBatch(ctx, inputs, c.Workers)

	failed := 0
	var candidates []review.Candidate
	var scores []*score.FieldScore
	for _, res := range results {
		if res.Err != nil {
			failed++
			logging.ErrorContext(ctx, "verse failed", "ref", res.Ref.String(), "error", res.Err.Error())
			continue
		}
		candidates = append(candidates, res.Candidates...)
		for _, rec := range res.Records {
			for _, fs := range rec.Scores {
				scores = append(scores, fs)
			}
		}
	}

	if err := export.Write(c.Out, export.FromResults(results), export.CompressionType(c.Compression)); err != nil {
		return err
	}

	if c.Ledger != "" && len(candidates) > 0 {
		ledger, store, err := openLedger(c.Ledger)
		if err != nil {
			return err
		}
		defer store.Close()
		items, err := ledger.OpenItems(ctx, candidates)
		if err != nil {
			return err
		}
		fmt.Printf("ledger: %d review items\n", len(items))
	}

	fmt.Printf("fused %d/%d verses -> %s\n", len(results)-failed, len(results), c.Out)
	fmt.Println(score.Summarize(scores))
	if failed > 0 {
		return fmt.Errorf("%d verses failed", failed)
	}
	return nil
}

// ExtractCmd converts OSHB OSIS XML into verse inputs ready for merging.
type ExtractCmd struct {
	OSIS    string `arg:"" help:"OSHB OSIS XML file" type:"existingfile"`
	Out     string `required:"" help:"Output verse-inputs JSON path" type:"path"`
	Strongs string `help:"Strong's dictionary JS file for lexicon annotations" type:"existingfile"`
	Related string `help:"Related-words TSV (requires --strongs)" type:"existingfile"`
	MinRel  float64 `default:"0.5" help:"Minimum relatedness score to keep"`
}

func (c *ExtractCmd) Run() error {
	data, err := os.ReadFile(c.OSIS)
	if err != nil {
		return fmt.Errorf("read OSIS: %w", err)
	}
	var extractor oshb.Extractor
	verses, err := extractor.ExtractVerses(data)
	if err != nil {
		return err
	}

	var dict *lexicon.Dictionary
	if c.Strongs != "" {
		f, err := os.Open(c.Strongs)
		if err != nil {
			return fmt.Errorf("open dictionary: %w", err)
		}
		dict, err = lexicon.ParseStrongsJS(f)
		f.Close()
		if err != nil {
			return err
		}
		if c.Related != "" {
			rf, err := os.Open(c.Related)
			if err != nil {
				return fmt.Errorf("open related table: %w", err)
			}
			err = dict.LoadRelatedTSV(rf, c.MinRel)
			rf.Close()
			if err != nil {
				return err
			}
		}
	} else if c.Related != "" {
		return fmt.Errorf("--related requires --strongs")
	}

	inputs := make([]pipeline.VerseInput, 0, len(verses))
	for _, v := range verses {
		in := pipeline.VerseInput{
			Ref:     v.Batch.Ref,
			Text:    v.Text,
			Sources: []*source.Batch{v.Batch},
		}
		if dict != nil {
			if lex := dict.Annotate(v.Batch); len(lex.Tokens) > 0 {
				in.Sources = append(in.Sources, lex)
			}
		}
		inputs = append(inputs, in)
	}

	out, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	if err := os.WriteFile(c.Out, out, 0644); err != nil {
		return fmt.Errorf("write inputs: %w", err)
	}
	fmt.Printf("extracted %d verses -> %s\n", len(inputs), c.Out)
	return nil
}

// ReviewListCmd lists ledger items.
type ReviewListCmd struct {
	Ledger string `required:"" help:"SQLite ledger path" type:"path"`
	Status string `help:"Filter by status" enum:",pending,approved,corrected,rejected,skipped" default:""`
	Reason string `help:"Filter by review reason"`
	Limit  int    `default:"50" help:"Maximum items to show"`
}

func (c *ReviewListCmd) Run() error {
	_, store, err := openLedger(c.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.List(context.Background(), review.Filter{
		Status: review.Status(c.Status),
		Reason: c.Reason,
		Limit:  c.Limit,
	})
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("%s  %-9s  %s/%s  v%d  %.2f  %s\n",
			it.ID, it.Status, it.TokenID, it.FieldName, it.Version, it.Confidence, it.Reason)
	}
	fmt.Printf("%d items\n", len(items))
	return nil
}

// decide applies a terminal disposition to one item.
func decide(ledgerPath, id string, d review.Disposition) error {
	ledger, store, err := openLedger(ledgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	it, err := ledger.Apply(context.Background(), id, d)
	if err != nil {
		return err
	}
	logging.ReviewDecision(it.ID, string(it.Status), it.ReviewerID)
	fmt.Printf("%s -> %s\n", it.ID, it.Status)
	return nil
}

// ReviewApproveCmd approves a pending item.
type ReviewApproveCmd struct {
	Ledger   string `required:"" help:"SQLite ledger path" type:"path"`
	ID       string `arg:"" help:"Review item ID"`
	Reviewer string `required:"" help:"Reviewer identifier"`
	Notes    string `help:"Reviewer notes"`
}

func (c *ReviewApproveCmd) Run() error {
	return decide(c.Ledger, c.ID, review.Disposition{
		Status: review.StatusApproved, ReviewerID: c.Reviewer, Notes: c.Notes,
	})
}

// ReviewCorrectCmd corrects a pending item with a reviewer-supplied value.
type ReviewCorrectCmd struct {
	Ledger   string   `required:"" help:"SQLite ledger path" type:"path"`
	ID       string   `arg:"" help:"Review item ID"`
	Reviewer string   `required:"" help:"Reviewer identifier"`
	Value    []string `required:"" help:"Corrected value (repeat for list values)"`
	Notes    string   `help:"Reviewer notes"`
}

func (c *ReviewCorrectCmd) Run() error {
	var v source.Value
	if len(c.Value) == 1 {
		v = source.String(c.Value[0])
	} else {
		v = source.List(c.Value...)
	}
	return decide(c.Ledger, c.ID, review.Disposition{
		Status: review.StatusCorrected, CorrectedValue: v,
		ReviewerID: c.Reviewer, Notes: c.Notes,
	})
}

// ReviewRejectCmd rejects a pending item.
type ReviewRejectCmd struct {
	Ledger   string `required:"" help:"SQLite ledger path" type:"path"`
	ID       string `arg:"" help:"Review item ID"`
	Reviewer string `required:"" help:"Reviewer identifier"`
	Notes    string `help:"Reviewer notes"`
}

func (c *ReviewRejectCmd) Run() error {
	return decide(c.Ledger, c.ID, review.Disposition{
		Status: review.StatusRejected, ReviewerID: c.Reviewer, Notes: c.Notes,
	})
}

// ReviewSkipCmd skips a pending item.
type ReviewSkipCmd struct {
	Ledger   string `required:"" help:"SQLite ledger path" type:"path"`
	ID       string `arg:"" help:"Review item ID"`
	Reviewer string `required:"" help:"Reviewer identifier"`
	Notes    string `help:"Reviewer notes"`
}

func (c *ReviewSkipCmd) Run() error {
	return decide(c.Ledger, c.ID, review.Disposition{
		Status: review.StatusSkipped, ReviewerID: c.Reviewer, Notes: c.Notes,
	})
}

// ReviewResetCmd reopens a decided (token, field) as a fresh pending item.
type ReviewResetCmd struct {
	Ledger string `required:"" help:"SQLite ledger path" type:"path"`
	Token  string `arg:"" help:"Canonical token ID"`
	Field  string `arg:"" help:"Field name"`
	Notes  string `help:"Why the item is being reopened"`
}

func (c *ReviewResetCmd) Run() error {
	ledger, store, err := openLedger(c.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	it, err := ledger.Reset(context.Background(), c.Token, source.FieldName(c.Field), c.Notes)
	if err != nil {
		return err
	}
	fmt.Printf("%s reopened as v%d (%s)\n", c.Token, it.Version, it.ID)
	return nil
}

// ReviewStatsCmd prints ledger statistics.
type ReviewStatsCmd struct {
	Ledger string `required:"" help:"SQLite ledger path" type:"path"`
}

func (c *ReviewStatsCmd) Run() error {
	ledger, store, err := openLedger(c.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := ledger.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d items\n", st.Total)
	for _, s := range []review.Status{review.StatusPending, review.StatusApproved,
		review.StatusCorrected, review.StatusRejected, review.StatusSkipped} {
		if n := st.ByStatus[s]; n > 0 {
			fmt.Printf("  %-9s %d\n", s, n)
		}
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("fuse %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("fuse"),
		kong.Description("Annotation fusion for ancient-language scripture corpora"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if CLI.Verbose {
		logging.InitLogger(logging.LevelDebug, logging.FormatText)
	}
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/session"
)

var (
	runName         string
	runURL          string
	runCategory     string
	runDescription  string
	runAnswers      string
	runProvider     string
	runModel        string
	runConcept      int
	runAutofill     bool
	runSkipResearch bool
	runSave         bool
	runOut          string
	runFormat       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole wizard for one brand without prompts",
	Long:  "Researches the brand, builds the profile from an answers file or autofill, generates concepts, picks one and writes the storyboard export.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, runSave)
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := newRunSession()
		if err != nil {
			return err
		}
		log := zap.L().With(zap.String("session", sess.ID), zap.String("brand", sess.Identity.Name))

		if runSave {
			defer func() {
				if err := env.Store.SaveSession(ctx, sess); err != nil {
					log.Warn("save session", zap.Error(err))
				}
			}()
		}

		p := env.Pipeline
		switch {
		case runAutofill:
			if err := p.Autofill(ctx, sess); err != nil {
				return eris.Wrap(err, "autofill")
			}
		default:
			if !runSkipResearch {
				if _, err := p.Research(ctx, sess); err != nil {
					log.Warn("research failed, continuing on model knowledge", zap.Error(err))
				}
			}
			if err := advanceToReview(sess); err != nil {
				return err
			}
		}

		bp := p.Profile(sess)
		log.Info("profile assembled",
			zap.String("maturity_mode", string(bp.MaturityMode)),
			zap.Int("maturity_score", bp.MaturityScore),
		)

		concepts, err := p.GenerateConcepts(ctx, sess)
		if err != nil {
			return eris.Wrap(err, "generate concepts")
		}
		for i, c := range concepts {
			log.Info("concept", zap.Int("index", i), zap.String("title", c.Title))
		}

		concept, err := p.SelectConcept(sess, runConcept)
		if err != nil {
			return eris.Wrapf(err, "select concept %d", runConcept)
		}
		log.Info("concept selected", zap.String("title", concept.Title))

		sb, err := p.GenerateStoryboard(ctx, sess)
		if err != nil {
			return eris.Wrap(err, "generate storyboard")
		}
		if sb.Degraded() {
			log.Warn("storyboard reply was not JSON, exporting raw text")
		}

		exp, err := p.Export(sess)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if runSave {
			// Exports reference the session row.
			if err := env.Store.SaveSession(ctx, sess); err != nil {
				return eris.Wrap(err, "save session")
			}
			rec, err := env.Store.SaveExport(ctx, sess.ID, exp)
			if err != nil {
				return eris.Wrap(err, "save export")
			}
			log.Info("export saved", zap.String("export_id", rec.ID))
		}

		return writeExport(cmd.OutOrStdout(), exp, runFormat, runOut)
	},
}

// newRunSession builds a session from the run flags.
func newRunSession() (*session.Session, error) {
	identity := model.BrandIdentity{
		Name:        strings.TrimSpace(runName),
		URL:         strings.TrimSpace(runURL),
		Category:    runCategory,
		Description: runDescription,
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if !identity.Ready() {
		return nil, eris.New("--name and --category are required")
	}

	settings := cfg.LLM.Settings()
	if runProvider != "" {
		var err error
		if settings, err = settings.WithProvider(llm.Provider(runProvider)); err != nil {
			return nil, err
		}
		settings.APIKey = cfg.LLM.KeyFor(settings.Provider)
	}
	if runModel != "" {
		settings.Model = runModel
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	sess := session.New(uuid.New().String(), time.Now())
	sess.SetLLM(settings)
	sess.SetIdentity(identity)

	if runAnswers != "" {
		answers, err := loadAnswers(runAnswers)
		if err != nil {
			return nil, err
		}
		sess.SetAnswers(answers)
	}
	return sess, nil
}

// loadAnswers reads wizard answers from a YAML (or JSON) file. Omitted
// fields keep their defaults.
func loadAnswers(path string) (model.WizardAnswers, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.WizardAnswers{}, eris.Wrap(err, "read answers")
	}
	answers := model.DefaultAnswers()
	if err := yaml.Unmarshal(b, &answers); err != nil {
		return model.WizardAnswers{}, eris.Wrapf(err, "parse answers %s", path)
	}
	answers = answers.Normalize()
	if err := answers.Validate(); err != nil {
		return model.WizardAnswers{}, err
	}
	return answers, nil
}

// advanceToReview steps through the wizard to the review step.
func advanceToReview(sess *session.Session) error {
	for sess.Step < session.StepReview {
		if err := sess.Apply(session.Event{Type: session.EventNext}); err != nil {
			return eris.Wrapf(err, "advance from %s", sess.Step)
		}
	}
	return nil
}

// writeExport encodes exp to out, or to stdout when out is empty. An out
// of "-" also means stdout; a directory gets the default file name.
func writeExport(stdout io.Writer, exp model.PipelineExport, format, out string) error {
	var buf bytes.Buffer
	if err := pipeline.EncodeExport(&buf, exp, format); err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err := stdout.Write(buf.Bytes())
		return eris.Wrap(err, "write export")
	}

	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		name := model.ExportFilename(exp.BrandProfile.BrandName)
		if format == pipeline.FormatYAML {
			name = strings.TrimSuffix(name, ".json") + ".yaml"
		}
		out = filepath.Join(out, name)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return eris.Wrap(err, "write export")
	}
	zap.L().Info("export written", zap.String("path", out))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "brand name (required)")
	runCmd.Flags().StringVar(&runURL, "url", "", "brand website")
	runCmd.Flags().StringVar(&runCategory, "category", "", "product category (required)")
	runCmd.Flags().StringVar(&runDescription, "description", "", "one-line brand description")
	runCmd.Flags().StringVar(&runAnswers, "answers", "", "YAML file of wizard answers")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider (default from config)")
	runCmd.Flags().StringVar(&runModel, "model", "", "LLM model (default from config)")
	runCmd.Flags().IntVar(&runConcept, "concept", 0, "index of the concept to storyboard")
	runCmd.Flags().BoolVar(&runAutofill, "autofill", false, "let the model answer every wizard step")
	runCmd.Flags().BoolVar(&runSkipResearch, "skip-research", false, "skip site research")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the session and export to the store")
	runCmd.Flags().StringVar(&runOut, "out", "", "output file or directory (default stdout)")
	runCmd.Flags().StringVar(&runFormat, "format", pipeline.FormatJSON, "export format: json or yaml")
	_ = runCmd.MarkFlagRequired("name")
	_ = runCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(runCmd)
}

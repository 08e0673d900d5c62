package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/ingestion"
	"github.com/jonathan/linkedin-optimizer/internal/observability"
	"github.com/jonathan/linkedin-optimizer/internal/store"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Enter, import and inspect the profile to optimize",
	Long:  "The profile lives in <data-dir>/profile_data.json. Every subcommand reads it, applies its change and writes it back.",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set profile fields manually",
	Long:  "Sets the given fields. Fields whose flag is not passed keep their saved value; pass an empty value to clear one.",
	RunE:  runProfileSet,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved profile, its preview and keyword hints",
	RunE:  runProfileShow,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a complete profile record from a JSON file",
	Long:  "Replaces the saved profile with the profile JSON read from --in (or stdin with --in -).",
	RunE:  runProfileSave,
}

var profileImportJSONCmd = &cobra.Command{
	Use:   "import-json",
	Short: "Merge the JSON produced by the browser-console snippet",
	Long:  "Reads the pasted JSON (optionally inside a ``` fence) and merges the profile keys it contains. Malformed input changes nothing.",
	RunE:  runProfileImportJSON,
}

var profileImportPDFCmd = &cobra.Command{
	Use:   "import-pdf",
	Short: "Import a LinkedIn \"Save to PDF\" export",
	Long:  "Extracts the PDF text and fills About, Experience and Skills from fixed slices of it. Review the result; the slicing is approximate.",
	RunE:  runProfileImportPDF,
}

var profileImportHTMLCmd = &cobra.Command{
	Use:   "import-html",
	Short: "Import a saved LinkedIn profile page",
	Long:  "Parses a profile page saved from the browser while logged in and fills headline, about, experience and skills.",
	RunE:  runProfileImportHTML,
}

var (
	profileTargetRole string
	profileHeadline   string
	profileAbout      string
	profileExperience string
	profileSkills     string
	profileJSON       bool
	profileInput      string
)

func init() {
	profileSetCmd.Flags().StringVarP(&profileTargetRole, "target-role", "r", "", "Target remote role")
	profileSetCmd.Flags().StringVar(&profileHeadline, "headline", "", "Current headline")
	profileSetCmd.Flags().StringVar(&profileAbout, "about", "", "Current About section (prefix with @ to read a file)")
	profileSetCmd.Flags().StringVar(&profileExperience, "experience", "", "Key experience (prefix with @ to read a file)")
	profileSetCmd.Flags().StringVar(&profileSkills, "skills", "", "Skills, comma separated")

	profileShowCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the full profile record as JSON")

	for _, c := range []*cobra.Command{profileSaveCmd, profileImportJSONCmd, profileImportPDFCmd, profileImportHTMLCmd} {
		c.Flags().StringVarP(&profileInput, "in", "i", "", "Path to input file, or - for stdin (required)")
		if err := c.MarkFlagRequired("in"); err != nil {
			panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
		}
	}

	profileCmd.AddCommand(profileSetCmd, profileShowCmd, profileSaveCmd, profileImportJSONCmd, profileImportPDFCmd, profileImportHTMLCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, _ []string) error {
	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	profile, err := loadOrEmptyProfile(st)
	if err != nil {
		return err
	}

	values := map[string]*string{
		types.FieldTargetRole: &profileTargetRole,
		types.FieldHeadline:   &profileHeadline,
		types.FieldAbout:      &profileAbout,
		types.FieldExperience: &profileExperience,
		types.FieldSkills:     &profileSkills,
	}
	flagNames := map[string]string{
		types.FieldTargetRole: "target-role",
		types.FieldHeadline:   "headline",
		types.FieldAbout:      "about",
		types.FieldExperience: "experience",
		types.FieldSkills:     "skills",
	}

	fields := make(map[string]string)
	for _, key := range types.ProfileFields {
		if !cmd.Flags().Changed(flagNames[key]) {
			continue
		}
		value, err := flagValue(*values[key])
		if err != nil {
			return err
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields given; pass at least one of --target-role, --headline, --about, --experience, --skills")
	}

	applied := profile.Merge(fields)
	profile.Timestamp = time.Now()
	path, err := st.SaveProfile(profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "✅ Updated %d fields: %v\n", len(applied), applied)
	_, _ = fmt.Fprintf(out, "Profile saved to: %s\n", path)
	if hints := types.HintsForRole(profile.TargetRole); hints != nil {
		observability.NewPrinter(out).PrintKeywordHints(hints)
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, _ []string) error {
	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	profile, err := st.LoadProfile()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if profile == nil {
		_, _ = fmt.Fprintln(out, "No saved profile. Start with 'profile set --target-role ...' or one of the import commands.")
		return nil
	}

	if profileJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	}

	printer := observability.NewPrinter(out)
	printer.PrintProfilePreview(profile)
	printer.PrintKeywordHints(types.HintsForRole(profile.TargetRole))
	if profile.TargetRole == "" {
		_, _ = fmt.Fprintln(out, "⚠️ Set a target role before running the optimizer.")
	}
	return nil
}

func runProfileSave(cmd *cobra.Command, _ []string) error {
	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, profileInput)
	if err != nil {
		return err
	}
	var profile types.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	if profile.Timestamp.IsZero() {
		profile.Timestamp = time.Now()
	}

	path, err := st.SaveProfile(&profile)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile saved to: %s\n", path)
	return nil
}

func runProfileImportJSON(cmd *cobra.Command, _ []string) error {
	data, err := readInput(cmd, profileInput)
	if err != nil {
		return err
	}
	result, err := ingestion.ParseJSON(string(data))
	if err != nil {
		return err
	}
	return applyImport(cmd, result)
}

func runProfileImportPDF(cmd *cobra.Command, _ []string) error {
	var (
		result *ingestion.Result
		err    error
	)
	if profileInput == "-" {
		var data []byte
		data, err = readInput(cmd, profileInput)
		if err != nil {
			return err
		}
		result, err = ingestion.ParsePDFBytes(data)
	} else {
		result, err = ingestion.ParsePDFFile(profileInput)
	}
	if err != nil {
		return err
	}
	return applyImport(cmd, result)
}

func runProfileImportHTML(cmd *cobra.Command, _ []string) error {
	data, err := readInput(cmd, profileInput)
	if err != nil {
		return err
	}
	result, err := ingestion.ParseHTMLString(string(data))
	if err != nil {
		return err
	}
	return applyImport(cmd, result)
}

// applyImport merges an import into the saved profile and writes it back.
func applyImport(cmd *cobra.Command, result *ingestion.Result) error {
	cfg, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	profile, err := loadOrEmptyProfile(st)
	if err != nil {
		return err
	}

	applied := result.Apply(profile)
	profile.Timestamp = time.Now()
	path, err := st.SaveProfile(profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Characters > 0 {
		_, _ = fmt.Fprintf(out, "✅ Extracted %d characters from %s\n", result.Characters, result.Source)
	}
	_, _ = fmt.Fprintf(out, "✅ Imported %d fields: %v\n", len(applied), applied)
	_, _ = fmt.Fprintf(out, "Profile saved to: %s\n", path)
	if cfg.Verbose && result.Preview != "" {
		_, _ = fmt.Fprintf(out, "Preview:\n%s...\n", result.Preview)
	}
	return nil
}

func loadOrEmptyProfile(st *store.Store) (*types.Profile, error) {
	profile, err := st.LoadProfile()
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &types.Profile{}
	}
	return profile, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// flagValue expands "@path" to the contents of path.
func flagValue(value string) (string, error) {
	if len(value) < 2 || value[0] != '@' {
		return value, nil
	}
	data, err := os.ReadFile(value[1:])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", value[1:], err)
	}
	return string(data), nil
}

package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	statehash "github.com/statehash/statehash/pkg"
)

var (
	flagThreads       int
	flagVerbose       int
	flagDebug         string
	flagExcludeDir    []string
	flagExcludeFile   []string
	flagExcludePath   []string
	flagReadAllFiles  bool
	flagIgnoreMissing bool
	flagOnlyPresence  bool
)

var rootCmd = &cobra.Command{
	Use:   "statehash",
	Short: "Hash files in a directory tree",
	Long: `statehash records a content-addressed integrity snapshot of a directory
tree: one SHA-256 digest, size and modification time per file. Subsequent
runs classify every file as new, unchanged, modified or missing, detect
content that merely moved, and can verify the tree against the archived
state under several policies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var updateCmd = &cobra.Command{
	Use:   "update STATE_DIR [DIRECTORY]",
	Short: "Update the archive state",
	Long: `Update classifies every file under DIRECTORY (default: current directory)
against the latest snapshot in STATE_DIR, reconciles moved or duplicated
content, and writes a new snapshot generation.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := newArchive(args)
		if err != nil {
			return err
		}
		return archive.Update(flagReadAllFiles)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify STATE_DIR [DIRECTORY]",
	Short: "Verify files based on archive state",
	Long: `Verify re-reads every file under DIRECTORY (default: current directory)
and checks it against the latest snapshot in STATE_DIR. Verification never
trusts file metadata; all content is re-hashed. The exit status is non-zero
when the selected policy detects an integrity violation.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := newArchive(args)
		if err != nil {
			return err
		}
		return archive.Verify(statehash.VerifyPolicy{
			IgnoreMissing: flagIgnoreMissing,
			OnlyPresence:  flagOnlyPresence,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagThreads, "threads", "t", 0,
		"number of threads to use for reading files (default 1; around 8 helps on SSDs, hurts on HDDs)")
	rootCmd.PersistentFlags().IntVar(&flagVerbose, "verbose", 0,
		"verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)")
	rootCmd.PersistentFlags().StringVar(&flagDebug, "debug", "",
		"comma-separated debug flags (e.g. snapshot,walk)")
	rootCmd.PersistentFlags().StringArrayVar(&flagExcludeDir, "exclude-directory", nil,
		"exclude directories whose name matches this regular expression (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flagExcludeFile, "exclude-file", nil,
		"exclude files whose name matches this regular expression (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flagExcludePath, "exclude-path", nil,
		"exclude files whose path matches this regular expression (repeatable)")

	updateCmd.Flags().BoolVar(&flagReadAllFiles, "read-all-files", false,
		"skip comparison of modification times and sizes and read all files")

	verifyCmd.Flags().BoolVar(&flagIgnoreMissing, "ignore-missing", false,
		"allow files present in the archive state to be missing")
	verifyCmd.Flags().BoolVar(&flagOnlyPresence, "only-presence", false,
		"just check files are in the archive, don't verify paths")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(verifyCmd)
}

// compileExcludes compiles one class of exclusion patterns
func compileExcludes(patterns []string, kind string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s exclusion pattern '%s': %w", kind, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// newArchive builds an Archive from the command line arguments and flags
func newArchive(args []string) (*statehash.Archive, error) {
	statehash.SetVerboseLevel(flagVerbose)
	statehash.SetDebugFlags(flagDebug)

	excludeDir, err := compileExcludes(flagExcludeDir, "directory")
	if err != nil {
		return nil, err
	}
	excludeFile, err := compileExcludes(flagExcludeFile, "file")
	if err != nil {
		return nil, err
	}
	excludePath, err := compileExcludes(flagExcludePath, "path")
	if err != nil {
		return nil, err
	}

	stateDir := args[0]
	rootDir := ""
	if len(args) > 1 {
		rootDir = args[1]
	}

	archive, err := statehash.NewArchive(stateDir, rootDir, &statehash.Options{
		Threads: flagThreads,
		Exclude: statehash.ExcludeRules{
			Directory: excludeDir,
			File:      excludeFile,
			Path:      excludePath,
		},
	})
	if err != nil {
		return nil, err
	}

	fmt.Printf("using %d thread(s)\n", archive.Threads())
	return archive, nil
}

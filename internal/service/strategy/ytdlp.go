package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// SubtitleJob describes one yt-dlp invocation.
type SubtitleJob struct {
	URL       string
	Languages []string
	OutputDir string
	Proxy     string
}

// SubtitleRunner writes subtitle files for job into job.OutputDir.
type SubtitleRunner func(ctx context.Context, job SubtitleJob) error

// YtDLP shells out to yt-dlp to write the subtitle file, then reads it back.
type YtDLP struct {
	identities Identities
	workDir    string
	run        SubtitleRunner
}

// NewYtDLP creates the strategy. Temporary directories are created under
// workDir, or the system temp dir when empty. A nil runner uses go-ytdlp.
func NewYtDLP(identities Identities, workDir string, run SubtitleRunner) *YtDLP {
	if run == nil {
		run = runYtDLP
	}
	return &YtDLP{identities: identities, workDir: workDir, run: run}
}

// Name implements extraction.Strategy.
func (s *YtDLP) Name() string { return config.StrategyYtDLP }

// Attempt implements extraction.Strategy.
func (s *YtDLP) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	dir, err := os.MkdirTemp(s.workDir, "captions-"+req.VideoID+"-")
	if err != nil {
		return nil, extraction.Transient(fmt.Errorf("create work dir: %w", err))
	}
	defer os.RemoveAll(dir)

	id := s.identities.Next()
	job := SubtitleJob{
		URL:       "https://www.youtube.com/watch?v=" + req.VideoID,
		Languages: extraction.FallbackLanguages(req.Language, req.Policy),
		OutputDir: dir,
		Proxy:     id.ProxyURL(),
	}

	if err := s.run(ctx, job); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.ClassifyMessage(err)
	}

	files, err := subtitleFiles(dir)
	if err != nil {
		return nil, extraction.Transient(err)
	}
	if len(files) == 0 {
		return nil, extraction.NoCaptions("yt-dlp wrote no subtitles for %s", req.VideoID)
	}

	path, lang := pickSubtitleFile(files, job.Languages)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, extraction.Transient(fmt.Errorf("read subtitle file: %w", err))
	}

	return &extraction.Payload{
		Raw:      string(data),
		Format:   parser.FormatFromExtension(filepath.Ext(path)),
		Language: lang,
	}, nil
}

func subtitleFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.vtt", "*.srt"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// subtitleLanguage reads the language from yt-dlp's "<id>.<lang>.<ext>" naming.
func subtitleLanguage(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return ""
}

// pickSubtitleFile returns the file for the earliest language in preference
// order, or the first file when none match.
func pickSubtitleFile(files, preference []string) (string, string) {
	for _, want := range preference {
		for _, f := range files {
			if strings.EqualFold(subtitleLanguage(f), want) {
				return f, subtitleLanguage(f)
			}
		}
	}
	return files[0], subtitleLanguage(files[0])
}

func runYtDLP(ctx context.Context, job SubtitleJob) error {
	dl := ytdlp.New().
		SkipDownload().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(strings.Join(job.Languages, ",")).
		SubFormat("vtt/srt/best").
		Output(filepath.Join(job.OutputDir, "%(id)s.%(ext)s"))

	if job.Proxy != "" {
		dl = dl.Proxy(job.Proxy)
	}

	res, err := dl.Run(ctx, job.URL)
	if err != nil {
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			return errors.New(strings.TrimSpace(res.Stderr))
		}
		return err
	}
	return nil
}

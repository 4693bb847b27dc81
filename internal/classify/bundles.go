package classify

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/pkg/cache"
)

//go:embed bundles/*.json
var embeddedBundles embed.FS

// dimensionFiles maps a dimension name to its embedded bundle filename.
var dimensionFiles = map[string]string{
	models.DimensionPhase:   "think-act.json",
	models.DimensionScope:   "converge-diverge.json",
	models.DimensionLocus:   "internal-external.json",
	models.DimensionNovelty: "routine-novel.json",
}

// Dimensions lists the four per-observation classifier dimensions, in a
// stable order, per spec §4.S4.
func Dimensions() []string {
	return []string{
		models.DimensionPhase,
		models.DimensionScope,
		models.DimensionLocus,
		models.DimensionNovelty,
	}
}

// loadedModel bundles a parsed model with its fingerprint for classifier_run
// provenance tracking.
type loadedModel struct {
	bundle Bundle
	hash   string
}

const bundleCacheScope = "model"

//nolint:gochecknoglobals // process-lifetime bundle cache, mirrors the teacher's singleton config cache
var bundleCache = cache.New[loadedModel](len(dimensionFiles))

// Load returns the parsed bundle and fingerprint for dimension, preferring a
// file in the user config directory over the embedded default, per spec
// §4.S4 ("may be overridden by files found in the user config directory").
// Results are cached per dimension for the process lifetime.
func Load(dimension string) (Bundle, string, error) {
	if cached, ok := bundleCache.Get(bundleCacheScope, dimension, "bundle"); ok {
		return cached.bundle, cached.hash, nil
	}

	filename, ok := dimensionFiles[dimension]
	if !ok {
		return Bundle{}, "", fmt.Errorf("unknown classifier dimension %q", dimension)
	}

	raw, err := readBundleBytes(filename)
	if err != nil {
		return Bundle{}, "", err
	}

	bundle, err := ParseBundle(raw)
	if err != nil {
		return Bundle{}, "", err
	}

	lm := loadedModel{bundle: bundle, hash: Fingerprint(raw)}
	bundleCache.Set(bundleCacheScope, dimension, "bundle", lm, 0)
	return lm.bundle, lm.hash, nil
}

// readBundleBytes checks the user config directory override location first,
// falling back to the binary-embedded default.
func readBundleBytes(filename string) ([]byte, error) {
	if dir, err := userOverrideDir(); err == nil {
		overridePath := filepath.Join(dir, filename)
		if b, err := os.ReadFile(overridePath); err == nil {
			return b, nil
		}
	}
	return embeddedBundles.ReadFile("bundles/" + filename)
}

// userOverrideDir returns $HOME/.nmem/classifiers, the directory searched
// for user-supplied bundle overrides.
func userOverrideDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nmem", "classifiers"), nil
}

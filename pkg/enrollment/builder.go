package enrollment

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/logging"
)

// Image is one raw enrollment image. Ref identifies it in logs (a file path
// or image id); Data holds the encoded image bytes.
type Image struct {
	Ref  string
	Data []byte
}

// Source pairs an identity with its enrollment images.
type Source struct {
	Identity Identity
	Images   []Image
}

// Builder turns raw enrollment images into a Set by running the embedding
// provider over every image. Extraction calls are independent and run
// concurrently, bounded by the worker limit.
type Builder struct {
	provider embedding.Provider
	workers  int
	log      *logrus.Entry
}

// NewBuilder creates a Builder. workers below 1 is treated as 1.
func NewBuilder(provider embedding.Provider, workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		provider: provider,
		workers:  workers,
		log:      logging.Component("enrollment"),
	}
}

// Build extracts an embedding from every enrollment image and assembles the
// Set. Per-image extraction failures are logged and skipped; they never fail
// the build. An identity whose every image fails stays registered with zero
// vectors and is therefore excluded from the active pool. The resulting set
// preserves the order of sources and, per identity, the order of its images.
func (b *Builder) Build(ctx context.Context, sources []Source) (*Set, error) {
	set := NewSet()
	for _, src := range sources {
		set.Add(src.Identity)
	}

	// One result slot per image, so joining preserves enrollment order no
	// matter how extraction interleaves.
	results := make([][]embedding.Vector, len(sources))
	for i, src := range sources {
		results[i] = make([]embedding.Vector, len(src.Images))
	}

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup

	for si := range sources {
		for ii := range sources[si].Images {
			wg.Add(1)
			go func(si, ii int) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				defer func() { <-sem }()

				src := sources[si]
				img := src.Images[ii]

				vec, err := b.provider.Extract(ctx, img.Data)
				if err != nil {
					if ctx.Err() == nil {
						b.log.WithFields(logging.Fields{
							"identity": src.Identity.ID,
							"label":    src.Identity.Label,
							"image":    img.Ref,
						}).WithError(err).Warn("skipping enrollment image")
					}
					return
				}
				results[si][ii] = vec
			}(si, ii)
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for si, src := range sources {
		valid := 0
		for _, vec := range results[si] {
			if vec == nil {
				continue
			}
			if err := set.AddVector(src.Identity.ID, vec); err != nil {
				// Mixed dimensionality is a contract violation, not a bad image.
				return nil, err
			}
			valid++
		}

		if valid == 0 && len(src.Images) > 0 {
			b.log.WithFields(logging.Fields{
				"identity": src.Identity.ID,
				"label":    src.Identity.Label,
				"images":   len(src.Images),
			}).Warn("identity has no usable enrollment images, excluded from matching pool")
		} else {
			b.log.WithFields(logging.Fields{
				"identity": src.Identity.ID,
				"label":    src.Identity.Label,
				"vectors":  valid,
				"images":   len(src.Images),
			}).Debug("identity enrolled")
		}
	}

	b.log.WithFields(logging.Fields{
		"identities": set.Len(),
		"active":     set.ActiveLen(),
	}).Info("enrollment set built")

	return set, nil
}

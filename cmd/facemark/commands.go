package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/enrollment"
	"github.com/MrCodeEU/facemark/pkg/logging"
	"github.com/MrCodeEU/facemark/pkg/matching"
	"github.com/MrCodeEU/facemark/pkg/roster"
	"github.com/MrCodeEU/facemark/pkg/session"
	"github.com/MrCodeEU/facemark/pkg/storage"
)

func openStore() (*roster.Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return roster.Open(cfg.DatabasePath())
}

func openProvider() (*embedding.DlibProvider, error) {
	provider := embedding.NewDlibProvider()
	if err := provider.LoadModels(cfg.Matching.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to load recognition models (run 'facemark download-models'): %w", err)
	}
	return provider, nil
}

// loadSources reads every enrolled image back out of the vault. Images that
// cannot be read are skipped with a warning; the roster entry survives.
func loadSources(ctx context.Context, store *roster.Store, vault *storage.Vault) ([]enrollment.Source, error) {
	records, err := store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]enrollment.Source, 0, len(records))
	for _, rec := range records {
		src := enrollment.Source{Identity: rec.Identity}
		for _, img := range rec.Images {
			data, err := vault.LoadImage(img.Path)
			if err != nil {
				logging.WithError(err).Warnf("Skipping unreadable enrollment image %s", img.Path)
				continue
			}
			src.Images = append(src.Images, enrollment.Image{Ref: img.Path, Data: data})
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func cmdRegister(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("label required\nUsage: facemark register <label>")
	}
	label := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	identity, err := store.CreateIdentity(context.Background(), label)
	if err != nil {
		return err
	}

	fmt.Printf("Registered '%s'\n", identity.Label)
	fmt.Printf("Identity id: %s\n", identity.ID)
	fmt.Printf("\nNext: facemark add-image %s <image-file>\n", identity.ID)
	return nil
}

func cmdAddImage(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("identity id and image file required\nUsage: facemark add-image <identity-id> <image-file>...")
	}
	identityID := args[0]
	files := args[1:]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.GetIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	vault, err := storage.NewVault(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return err
	}

	provider, err := openProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	added := 0
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		data, err := embedding.NormalizeImage(raw, embedding.DefaultMaxEdge)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}

		// Reject images up front that enrollment would only skip later
		if _, err := provider.Extract(ctx, data); err != nil {
			return fmt.Errorf("%s is not usable for enrollment: %w", file, err)
		}

		name, err := vault.SaveImage(uuid.NewString(), data)
		if err != nil {
			return err
		}
		if _, err := store.AddImage(ctx, identityID, name); err != nil {
			return err
		}
		added++
		fmt.Printf("Added %s to '%s'\n", file, rec.Identity.Label)
	}

	fmt.Printf("\n%d image(s) enrolled for '%s'.\n", added, rec.Identity.Label)
	return nil
}

func cmdMatch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("image file required\nUsage: facemark match <image-file>")
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	capture, err := embedding.NormalizeImage(raw, embedding.DefaultMaxEdge)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", args[0], err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	vault, err := storage.NewVault(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return err
	}

	provider, err := openProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx := context.Background()
	sources, err := loadSources(ctx, store, vault)
	if err != nil {
		return err
	}

	builder := enrollment.NewBuilder(provider, cfg.Matching.MaxConcurrentExtractions)
	set, err := builder.Build(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to build enrollment set: %w", err)
	}

	metric, err := matching.ForName(cfg.Matching.Metric)
	if err != nil {
		return err
	}
	matcher, err := matching.NewMatcher(metric, matching.Aggregation(cfg.Matching.Aggregation))
	if err != nil {
		return err
	}
	policy, err := matching.NewPolicy(cfg.Matching.DistanceThreshold)
	if err != nil {
		return err
	}

	controller := session.NewController(provider, matcher, policy, cfg.Matching.MinConfidence)
	decision, err := controller.Evaluate(ctx, capture, set)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	fmt.Printf("Result: %s\n", decision)
	return nil
}

func cmdRemove(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("identity id required\nUsage: facemark remove <identity-id>")
	}
	identityID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	vault, err := storage.NewVault(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return err
	}

	paths, err := store.RemoveIdentity(context.Background(), identityID)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := vault.DeleteImage(path); err != nil {
			logging.WithError(err).Warnf("Failed to delete image %s", path)
		}
	}

	fmt.Printf("Removed identity %s and %d image(s).\n", identityID, len(paths))
	return nil
}

func cmdList(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListIdentities(context.Background())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No identities registered.")
		return nil
	}

	fmt.Println("Registered identities:")
	for _, rec := range records {
		fmt.Printf("  %s  %-20s %d image(s)\n", rec.Identity.ID, rec.Identity.Label, len(rec.Images))
	}
	fmt.Printf("\nTotal: %d identit(ies)\n", len(records))
	return nil
}

func cmdConfig(args []string) error {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Matching]")
	fmt.Printf("  Threshold:       %.2f\n", cfg.Matching.DistanceThreshold)
	fmt.Printf("  Metric:          %s\n", cfg.Matching.Metric)
	fmt.Printf("  Aggregation:     %s\n", cfg.Matching.Aggregation)
	fmt.Printf("  Max Extractions: %d\n", cfg.Matching.MaxConcurrentExtractions)
	fmt.Printf("  Min Confidence:  %.2f\n", cfg.Matching.MinConfidence)
	fmt.Printf("  Model Path:      %s\n", cfg.Matching.ModelPath)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Data Dir:        %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Database:        %s\n", cfg.DatabasePath())
	fmt.Printf("  Encryption:      %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("  File:            %s\n", cfg.Logging.File)
	return nil
}

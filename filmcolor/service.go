package filmcolor

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
)

// Service runs lookup-table entry, sample mapping and remap against the
// files configured in Config. Calls through one Service are serialized;
// separate processes writing the same files are not coordinated.
type Service struct {
	mu sync.Mutex

	cfg   Config
	store *Store

	logger *log.Logger
}

// NewService constructs a service for the given configuration and installs
// its header aliases for subsequent reads. logger may be nil.
func NewService(cfg Config, logger *log.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	SetColumnCandidates(cfg.Columns)
	return &Service{
		cfg:    cfg,
		store:  NewStore(cfg.DataDir, cfg.TablePattern),
		logger: logger,
	}, nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	return s.cfg.Clone()
}

// Store returns the lookup table store.
func (s *Service) Store() *Store {
	return s.store
}

// ResultsPath returns the result log file.
func (s *Service) ResultsPath() string {
	return filepath.Join(s.cfg.DataDir, s.cfg.ResultsFile)
}

// ResolveSubstrate returns the configured spelling of name.
func (s *Service) ResolveSubstrate(name string) (string, error) {
	normalized := NormalizeName(name)
	for _, sub := range s.cfg.Substrates {
		if strings.EqualFold(NormalizeName(sub), normalized) {
			return sub, nil
		}
	}
	return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownSubstrate, name, strings.Join(s.cfg.Substrates, ", "))
}

// Process dispatches req to CreateEntry or MapSample according to its mode.
func (s *Service) Process(req Request) (Outcome, error) {
	switch req.Mode {
	case ModeEntry:
		entry, err := s.CreateEntry(req)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Entry: &entry}, nil
	case ModeMap:
		m, err := s.MapSample(req)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Mapping: &m}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
}

// CreateEntry normalizes the request's sample and appends it with the given
// thickness to the substrate's lookup table.
func (s *Service) CreateEntry(req Request) (LookupEntry, error) {
	substrate, err := s.ResolveSubstrate(req.Substrate)
	if err != nil {
		return LookupEntry{}, err
	}
	if _, err := imageName(req); err != nil {
		return LookupEntry{}, err
	}
	rgb, lab, err := s.normalizedSample(req)
	if err != nil {
		return LookupEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.store.LoadTable(substrate)
	if err != nil {
		return LookupEntry{}, fmt.Errorf("load lookup table: %w", err)
	}
	entry := LookupEntry{RGB: rgb, LAB: lab, Thickness: req.Thickness}
	if err := table.Append(entry); err != nil {
		return LookupEntry{}, err
	}
	if err := s.store.SaveTable(table); err != nil {
		return LookupEntry{}, fmt.Errorf("save lookup table: %w", err)
	}
	s.logf("Lookup table saved to %s (%d entries)", s.store.TablePath(substrate), len(table.Entries))
	return table.Entries[len(table.Entries)-1], nil
}

// MapSample matches the request's sample against the substrate's table in
// both color spaces and appends the result to the result log.
func (s *Service) MapSample(req Request) (Mapping, error) {
	substrate, err := s.ResolveSubstrate(req.Substrate)
	if err != nil {
		return Mapping{}, err
	}
	image, err := imageName(req)
	if err != nil {
		return Mapping{}, err
	}
	rgb, lab, err := s.normalizedSample(req)
	if err != nil {
		return Mapping{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.store.ExistingTable(substrate)
	if err != nil {
		return Mapping{}, err
	}
	rgbMatch, err := FindClosest(rgb, table, SpaceRGB, s.cfg.MatchThreshold())
	if err != nil {
		return Mapping{}, fmt.Errorf("match %s RGB: %w", substrate, err)
	}
	labMatch, err := FindClosest(lab, table, SpaceLAB, s.cfg.MatchThreshold())
	if err != nil {
		return Mapping{}, fmt.Errorf("match %s LAB: %w", substrate, err)
	}
	rec := ResultRecord{
		Image:        image,
		Substrate:    substrate,
		AverageRGB:   rgb,
		AverageLAB:   lab,
		ThicknessRGB: rgbMatch.Thickness,
		ThicknessLAB: labMatch.Thickness,
		NoteRGB:      string(rgbMatch.Kind),
		NoteLAB:      string(labMatch.Kind),
	}
	if err := AppendResultFile(s.ResultsPath(), rec); err != nil {
		return Mapping{}, fmt.Errorf("append result: %w", err)
	}
	s.logf("Results saved to %s", s.ResultsPath())
	return Mapping{
		NormalizedRGB: rgb,
		NormalizedLAB: lab,
		RGB:           rgbMatch,
		LAB:           labMatch,
		Record:        rec,
	}, nil
}

// RemapResults recomputes every stored result against the current lookup
// tables and rewrites the result log. It returns the number of records kept.
func (s *Service) RemapResults() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.ResultsPath()
	current, err := LoadResults(path)
	if err != nil {
		return 0, err
	}
	remapped, err := Remap(current, s.configuredTable, s.cfg.MatchThreshold())
	if err != nil {
		return 0, err
	}
	if err := SaveResults(path, remapped); err != nil {
		return 0, fmt.Errorf("save results: %w", err)
	}
	s.logf("Results remapped: %d records, %d duplicates removed", remapped.Len(), current.Len()-remapped.Len())
	return remapped.Len(), nil
}

// Table returns the persisted lookup table of a configured substrate.
func (s *Service) Table(substrate string) (*LookupTable, error) {
	name, err := s.ResolveSubstrate(substrate)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExistingTable(name)
}

// configuredTable loads a table for a substrate name read from the result
// log; names outside the configured set are rejected.
func (s *Service) configuredTable(substrate string) (*LookupTable, error) {
	name, err := s.ResolveSubstrate(substrate)
	if err != nil {
		return nil, err
	}
	return s.store.ExistingTable(name)
}

func (s *Service) normalizedSample(req Request) (Triplet, Triplet, error) {
	bgRGB, err := RGBTriplet(req.Background)
	if err != nil {
		return Triplet{}, Triplet{}, fmt.Errorf("background: %w", err)
	}
	fgRGB, err := RGBTriplet(req.Foreground)
	if err != nil {
		return Triplet{}, Triplet{}, fmt.Errorf("foreground: %w", err)
	}
	bgLAB, err := ToLab(req.Background)
	if err != nil {
		return Triplet{}, Triplet{}, fmt.Errorf("background: %w", err)
	}
	fgLAB, err := ToLab(req.Foreground)
	if err != nil {
		return Triplet{}, Triplet{}, fmt.Errorf("foreground: %w", err)
	}
	return Normalize(fgRGB, fgLAB, bgRGB, bgLAB, s.cfg.ZeroBackground)
}

func imageName(req Request) (string, error) {
	switch req.EntryMethod {
	case EntryManual, "":
		return ManualImageName, nil
	case EntryImage:
		base := filepath.Base(NormalizeName(req.Image))
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if name == "" || name == "." {
			return "", fmt.Errorf("%w: image-based entry without an image name", ErrInvalidRequest)
		}
		return name, nil
	default:
		return "", fmt.Errorf("%w: unknown entry method %q", ErrInvalidRequest, req.EntryMethod)
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

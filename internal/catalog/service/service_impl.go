package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	"github.com/smallbiznis/gglounge/pkg/db/option"
	"github.com/smallbiznis/gglounge/pkg/repository"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var deviceSortColumns = map[string]struct{}{
	"name":       {},
	"type":       {},
	"status":     {},
	"created_at": {},
}

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Devices repository.Repository[catalogdomain.Device]
	Games   repository.Repository[catalogdomain.Game]
	Snacks  repository.Repository[catalogdomain.Snack]
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	devices  repository.Repository[catalogdomain.Device]
	games    repository.Repository[catalogdomain.Game]
	snacks   repository.Repository[catalogdomain.Snack]
	validate *validator.Validate
}

func New(p Params) catalogdomain.Service {
	return &Service{
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		devices:  p.Devices,
		games:    p.Games,
		snacks:   p.Snacks,
		validate: validation.New(),
	}
}

func (s *Service) CreateDevice(ctx context.Context, req catalogdomain.CreateDeviceRequest) (*catalogdomain.Device, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	kind := catalogdomain.DeviceKind(req.Kind)
	if kind == "" {
		kind = catalogdomain.DeviceKindStandard
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 4
	}
	if kind == catalogdomain.DeviceKindVR {
		maxPlayers = 1
	}

	now := time.Now().UTC()
	device := &catalogdomain.Device{
		ID:         s.genID.Generate(),
		BranchID:   branchID,
		Name:       req.Name,
		Type:       slug.Make(req.Type),
		Kind:       kind,
		MaxPlayers: maxPlayers,
		Status:     catalogdomain.DeviceStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	s.log.Info("device created",
		zap.String("device_id", device.ID.String()),
		zap.String("type", device.Type),
		zap.String("kind", string(device.Kind)),
	)
	return device, nil
}

func (s *Service) GetDevice(ctx context.Context, id string) (*catalogdomain.Device, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	deviceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	device, err := s.devices.FindOne(ctx, &catalogdomain.Device{ID: deviceID, BranchID: branchID})
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, catalogdomain.ErrDeviceNotFound
	}
	return device, nil
}

func (s *Service) ListDevices(ctx context.Context, req catalogdomain.ListDevicesRequest) ([]*catalogdomain.Device, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.QueryOption{option.WithEquals("branch_id", branchID)}
	if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" {
		switch catalogdomain.DeviceStatus(status) {
		case catalogdomain.DeviceStatusOpen, catalogdomain.DeviceStatusBooked:
			opts = append(opts, option.WithEquals("status", status))
		default:
			return nil, catalogdomain.ErrInvalidStatus
		}
	}
	if deviceType := strings.TrimSpace(req.Type); deviceType != "" {
		opts = append(opts, option.WithEquals("type", slug.Make(deviceType)))
	}

	sortColumn := strings.ToLower(strings.TrimSpace(req.Sort))
	if _, ok := deviceSortColumns[sortColumn]; !ok {
		sortColumn = "name"
	}
	opts = append(opts, option.WithSort(sortColumn, option.ParseSortDirection(req.Order)))

	return s.devices.Find(ctx, nil, opts...)
}

func (s *Service) CreateGame(ctx context.Context, req catalogdomain.CreateGameRequest) (*catalogdomain.Game, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	game := &catalogdomain.Game{
		ID:                s.genID.Generate(),
		BranchID:          branchID,
		Name:              req.Name,
		VRPrice:           req.VRPrice,
		VRDurationMinutes: req.VRDurationMinutes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.games.Create(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Service) GetGame(ctx context.Context, id string) (*catalogdomain.Game, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	gameID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	game, err := s.games.FindOne(ctx, &catalogdomain.Game{ID: gameID, BranchID: branchID})
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, catalogdomain.ErrGameNotFound
	}
	return game, nil
}

func (s *Service) ListGames(ctx context.Context) ([]*catalogdomain.Game, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.games.Find(ctx, nil,
		option.WithEquals("branch_id", branchID),
		option.WithSort("popularity", option.SortDesc),
	)
}

func (s *Service) CreateSnack(ctx context.Context, req catalogdomain.CreateSnackRequest) (*catalogdomain.Snack, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snack := &catalogdomain.Snack{
		ID:        s.genID.Generate(),
		BranchID:  branchID,
		Name:      req.Name,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.snacks.Create(ctx, snack); err != nil {
		return nil, err
	}
	return snack, nil
}

func (s *Service) GetSnack(ctx context.Context, id string) (*catalogdomain.Snack, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	snackID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	snack, err := s.snacks.FindOne(ctx, &catalogdomain.Snack{ID: snackID, BranchID: branchID})
	if err != nil {
		return nil, err
	}
	if snack == nil {
		return nil, catalogdomain.ErrSnackNotFound
	}
	return snack, nil
}

func (s *Service) ListSnacks(ctx context.Context) ([]*catalogdomain.Snack, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.snacks.Find(ctx, nil,
		option.WithEquals("branch_id", branchID),
		option.WithSort("name", option.SortAsc),
	)
}

// LineTotal prices a snack line.
func LineTotal(snack *catalogdomain.Snack, quantity int64) decimal.Decimal {
	return snack.Price.Mul(decimal.NewFromInt(quantity))
}

func branchIDFromContext(ctx context.Context) (snowflake.ID, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return 0, catalogdomain.ErrInvalidBranch
	}
	return branchID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, catalogdomain.ErrInvalidID
	}
	return id, nil
}

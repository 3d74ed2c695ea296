// Package gameserver exposes the combat engine over gRPC as
// combat.v1.CombatService. Requests and replies are google.protobuf.Struct
// messages; the caller's account travels in the x-account-id metadata key and
// must own the character named by character_id.
package gameserver

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/observability"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "combat.v1.CombatService"

// AccountHeader is the metadata key carrying the caller's account id.
const AccountHeader = "x-account-id"

// Methods served besides the engine actions.
const (
	MethodStatus       = "Status"
	MethodFeed         = "Feed"
	MethodPullProgress = "PullProgress"
)

// CombatServer handles one call of the named method.
type CombatServer interface {
	Handle(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

// action runs one engine operation for an authorized character.
type action func(ctx context.Context, e *combat.Engine, characterID int64, a args) (combat.Reply, error)

var actions = map[string]action{
	"Engage": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.Engage(ctx, id, a.int64("spawn_id"))
	},
	"UseAbility": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.UseAbility(ctx, id, a.string("ability_key"), a.int64("target_id"))
	},
	"SetCombatTarget": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.SetCombatTarget(ctx, id, a.int64("enemy_id"))
	},
	"Flee": func(ctx context.Context, e *combat.Engine, id int64, _ args) (combat.Reply, error) {
		return e.Flee(ctx, id)
	},
	"StartPull": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.StartPull(ctx, id, a.int64("spawn_id"), combat.PullType(a.string("pull_type")))
	},
	"AbortPull": func(ctx context.Context, e *combat.Engine, id int64, _ args) (combat.Reply, error) {
		return e.AbortPull(ctx, id)
	},
	"DismissResults": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.DismissResults(ctx, id, a.bool("force"))
	},
	"ClaimLoot": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.ClaimLoot(ctx, id, a.int64("loot_id"))
	},
	"ExecutePerkAbility": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.ExecutePerkAbility(ctx, id, a.string("ability_key"))
	},
	"BeginGather": func(ctx context.Context, e *combat.Engine, id int64, _ args) (combat.Reply, error) {
		return e.BeginGather(ctx, id)
	},
	"EndGather": func(ctx context.Context, e *combat.Engine, id int64, _ args) (combat.Reply, error) {
		return e.EndGather(ctx, id)
	},
	"BeginTravel": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.BeginTravel(ctx, id, a.string("destination"))
	},
	"ArriveAt": func(ctx context.Context, e *combat.Engine, id int64, a args) (combat.Reply, error) {
		return e.ArriveAt(ctx, id, a.string("location"))
	},
	"Disconnect": func(ctx context.Context, e *combat.Engine, id int64, _ args) (combat.Reply, error) {
		return e.Disconnect(ctx, id)
	},
}

// Methods returns every method name the service answers, in a stable order.
func Methods() []string {
	return []string{
		"Engage", "UseAbility", "SetCombatTarget", "Flee", "StartPull", "AbortPull",
		"DismissResults", "ClaimLoot", "ExecutePerkAbility", "BeginGather", "EndGather",
		"BeginTravel", "ArriveAt", "Disconnect", MethodStatus, MethodFeed, MethodPullProgress,
	}
}

// Register installs srv on s under ServiceName.
func Register(s grpc.ServiceRegistrar, srv CombatServer) {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CombatServer)(nil),
		Metadata:    "combat/v1/combat.proto",
	}
	for _, m := range Methods() {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: m, Handler: methodHandler(m)})
	}
	s.RegisterService(&desc, srv)
}

func methodHandler(method string) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.(CombatServer).Handle(ctx, method, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, handler)
	}
}

// Service is the CombatServer backed by a combat.Engine.
type Service struct {
	engine *combat.Engine
	feed   *Feed
	logger *zap.Logger
}

var _ CombatServer = (*Service)(nil)

// NewService returns a Service over engine. feed answers the Feed method.
//
// Precondition: engine, feed and logger must be non-nil.
func NewService(engine *combat.Engine, feed *Feed, logger *zap.Logger) *Service {
	return &Service{engine: engine, feed: feed, logger: logger.Named("grpc")}
}

// Handle implements CombatServer. Authorization runs before any combat logic.
func (s *Service) Handle(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	a := args{req}
	characterID, err := s.authorize(ctx, a)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodStatus:
		snap, err := s.engine.Status(ctx, characterID)
		if err != nil {
			return nil, s.toStatus(method, characterID, err)
		}
		return snapshotStruct(snap)
	case MethodFeed:
		snap, err := s.engine.Status(ctx, characterID)
		if err != nil {
			return nil, s.toStatus(method, characterID, err)
		}
		lines := s.feed.Since(characterID, snap.Character.GroupID, snap.Character.Location, uint64(a.int64("since")))
		return feedStruct(lines)
	case MethodPullProgress:
		progress, ok, err := s.engine.PullProgress(ctx, a.int64("spawn_id"))
		if err != nil {
			return nil, s.toStatus(method, characterID, err)
		}
		return structpb.NewStruct(map[string]interface{}{"pulling": ok, "progress": progress})
	}
	act, ok := actions[method]
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	reply, err := act(ctx, s.engine, characterID, a)
	if err != nil {
		return nil, s.toStatus(method, characterID, err)
	}
	return replyStruct(reply)
}

func (s *Service) authorize(ctx context.Context, a args) (int64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(AccountHeader)
	if len(vals) == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing "+AccountHeader)
	}
	accountID, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil {
		return 0, status.Errorf(codes.Unauthenticated, "malformed %s %q", AccountHeader, vals[0])
	}
	characterID := a.int64("character_id")
	if characterID == 0 {
		return 0, status.Error(codes.InvalidArgument, "character_id is required")
	}
	if err := s.engine.Authorize(ctx, accountID, characterID); err != nil {
		if errors.Is(err, combat.ErrNotOwner) {
			return 0, status.Error(codes.PermissionDenied, err.Error())
		}
		return 0, s.toStatus("authorize", characterID, err)
	}
	return characterID, nil
}

// toStatus maps engine errors onto gRPC codes. Anything unrecognised is an
// integrity fault and is logged.
func (s *Service) toStatus(method string, characterID int64, err error) error {
	switch {
	case errors.Is(err, combat.ErrNotFound), errors.Is(err, combat.ErrUnknownPerk):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, combat.ErrPerkNotOwned), errors.Is(err, combat.ErrPerkWrongType),
		errors.Is(err, combat.ErrNotInCombat), errors.Is(err, combat.ErrNoTarget),
		errors.Is(err, combat.ErrOnCooldown), errors.Is(err, combat.ErrDead):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	fields := append(observability.EncounterFields(0, characterID), zap.String("method", method), zap.Error(err))
	s.logger.Error("combat call failed", fields...)
	return status.Error(codes.Internal, "internal error")
}

// args reads typed values out of a request struct. Missing fields read as zero.
type args struct {
	s *structpb.Struct
}

func (a args) value(key string) *structpb.Value {
	return a.s.GetFields()[key]
}

func (a args) int64(key string) int64 { return int64(a.value(key).GetNumberValue()) }

func (a args) string(key string) string { return a.value(key).GetStringValue() }

func (a args) bool(key string) bool { return a.value(key).GetBoolValue() }

package hgrpc

import (
	"context"
	"errors"

	"pulsetrack/services/billing-service/internal/domain"
	"pulsetrack/shared/genproto/billingpb"
	xerrors "pulsetrack/shared/utils/errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Provisioner interface {
	Provision(ctx context.Context, patientID, name, email string) (domain.Account, error)
}

type BillingGRPCHandler struct {
	billingpb.UnimplementedBillingServiceServer
	uc     Provisioner
	logger *zap.Logger
}

func NewBillingGRPCHandler(uc Provisioner, logger *zap.Logger) *BillingGRPCHandler {
	return &BillingGRPCHandler{uc: uc, logger: logger}
}

func (h *BillingGRPCHandler) CreateBillingAccount(ctx context.Context, req *billingpb.BillingRequest) (*billingpb.BillingResponse, error) {
	h.logger.Info("CreateBillingAccount received",
		zap.String("patient_id", req.GetPatientId()),
		zap.String("email", req.GetEmail()),
	)

	acc, err := h.uc.Provision(ctx, req.GetPatientId(), req.GetName(), req.GetEmail())
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.logger.Error("provision failed", zap.String("patient_id", req.GetPatientId()), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to provision billing account")
	}

	return &billingpb.BillingResponse{
		AccountId: acc.ID,
		Status:    acc.Status,
	}, nil
}

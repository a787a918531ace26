// Package billing is the patient side client of the billing gRPC service.
package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"pulsetrack/shared/genproto/billingpb"
	xerrors "pulsetrack/shared/utils/errors"
)

const DefaultDeadline = 3 * time.Second

type Account struct {
	ID     string
	Status string
}

// Client bounds every call with its deadline. All RPC failures come back
// wrapping xerrors.ErrBillingUnavailable.
type Client struct {
	conn     *grpc.ClientConn
	rpc      billingpb.BillingServiceClient
	deadline time.Duration
	logger   *zap.Logger
}

// Dial does not block; the connection is established on first use.
func Dial(addr string, deadline time.Duration, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("billing client for %s: %w", addr, err)
	}
	c := NewClient(billingpb.NewBillingServiceClient(conn), deadline, logger)
	c.conn = conn
	return c, nil
}

func NewClient(rpc billingpb.BillingServiceClient, deadline time.Duration, logger *zap.Logger) *Client {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rpc: rpc, deadline: deadline, logger: logger}
}

func (c *Client) CreateAccount(ctx context.Context, patientID, name, email string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	start := time.Now()
	resp, err := c.rpc.CreateBillingAccount(ctx, &billingpb.BillingRequest{
		PatientId: patientID,
		Name:      name,
		Email:     email,
	})
	if err != nil {
		c.logger.Warn("billing call failed",
			zap.String("patient_id", patientID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Account{}, fmt.Errorf("%w: %v", xerrors.ErrBillingUnavailable, err)
	}

	c.logger.Info("billing account provisioned",
		zap.String("patient_id", patientID),
		zap.String("account_id", resp.GetAccountId()),
		zap.String("status", resp.GetStatus()),
	)
	return Account{ID: resp.GetAccountId(), Status: resp.GetStatus()}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

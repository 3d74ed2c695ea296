package gameserver

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls CombatService on behalf of one account.
type Client struct {
	conn      grpc.ClientConnInterface
	accountID int64
}

// NewClient returns a Client that authenticates as accountID.
func NewClient(conn grpc.ClientConnInterface, accountID int64) *Client {
	return &Client{conn: conn, accountID: accountID}
}

// Call invokes method with args. args must hold only values structpb accepts.
func (c *Client) Call(ctx context.Context, method string, args map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(args)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, AccountHeader, strconv.FormatInt(c.accountID, 10))
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Act invokes an action method for characterID and returns its messages.
func (c *Client) Act(ctx context.Context, method string, characterID int64, args map[string]interface{}) ([]string, error) {
	full := map[string]interface{}{"character_id": characterID}
	for k, v := range args {
		full[k] = v
	}
	out, err := c.Call(ctx, method, full)
	if err != nil {
		return nil, err
	}
	var msgs []string
	for _, v := range out.GetFields()["messages"].GetListValue().GetValues() {
		msgs = append(msgs, v.GetStringValue())
	}
	return msgs, nil
}

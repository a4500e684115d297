package api

import (
	"context"

	"calldata-rpc/calldata"
	"calldata-rpc/client"
)

// Client is a typed wrapper over client.Client for the Codec service.
type Client struct {
	rpc *client.Client
}

func NewClient(rpc *client.Client) *Client {
	return &Client{rpc: rpc}
}

func (c *Client) Build(ctx context.Context, req *calldata.Request) (*BuildReply, error) {
	reply := &BuildReply{}
	args := BuildArgs(*req)
	if err := c.rpc.Call(ctx, ServiceName+".Build", &args, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Callback decodes a base64url return envelope as a value of tag.
func (c *Client) Callback(ctx context.Context, value, tag string) (string, error) {
	reply := &CallbackReply{}
	if err := c.rpc.Call(ctx, ServiceName+".Callback", &CallbackArgs{Value: value, Type: tag}, reply); err != nil {
		return "", err
	}
	return reply.Display, nil
}

func (c *Client) Inspect(ctx context.Context, data string, types ...string) (*InspectReply, error) {
	reply := &InspectReply{}
	if err := c.rpc.Call(ctx, ServiceName+".Inspect", &InspectArgs{Data: data, Types: types}, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) Tags(ctx context.Context) ([]string, error) {
	reply := &TagsReply{}
	if err := c.rpc.Call(ctx, ServiceName+".Tags", &TagsArgs{}, reply); err != nil {
		return nil, err
	}
	return reply.Tags, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

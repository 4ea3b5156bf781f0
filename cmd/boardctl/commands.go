package main

import (
	"fmt"
	"time"

	"taskboard-core/pkg/board"
	"taskboard-core/pkg/dynamo"
	"taskboard-core/pkg/retry"
	"taskboard-core/pkg/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var createTableCommand = &cli.Command{
	Name:  "create-table",
	Usage: "create the table from a CloudFormation template and wait until it is active",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "template", Usage: "path to the CloudFormation template", Value: "template.yml"},
		&cli.StringFlag{Name: "resource", Usage: "logical name of the table resource", Value: "TaskboardTable"},
		&cli.DurationFlag{Name: "wait", Usage: "how long to wait for the table", Value: 2 * time.Minute},
	},
	Action: func(c *cli.Context) error {
		input, err := dynamo.TableFromTemplate(c.String("template"), c.String("resource"))
		if err != nil {
			return err
		}
		input.TableName = aws.String(env.cfg.TableName)

		awsCfg, err := dynamo.LoadConfig(c.Context, env.cfg.AWSRegion, env.cfg.DynamoDBEndpoint)
		if err != nil {
			return err
		}
		if err := dynamo.CreateTable(c.Context, dynamodb.NewFromConfig(awsCfg), &input, c.Duration("wait")); err != nil {
			return err
		}

		env.logger.Info("Table created")
		return nil
	},
}

var verifyTableCommand = &cli.Command{
	Name:  "verify-table",
	Usage: "check that the table and its indexes have the expected layout",
	Action: func(c *cli.Context) error {
		client, err := connect(c.Context, env.cfg, env.logger)
		if err != nil {
			return err
		}
		if err := client.Init(c.Context); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "table %s is ready\n", env.cfg.TableName)
		return nil
	},
}

var bootstrapCommand = &cli.Command{
	Name:  "bootstrap",
	Usage: "create a company together with its root admin user",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "company", Usage: "company name", Required: true},
		&cli.StringFlag{Name: "root-sub", Usage: "identity subject of the root user", Required: true},
		&cli.StringFlag{Name: "root-name", Usage: "display name of the root user", Required: true},
		&cli.StringFlag{Name: "root-email", Usage: "email of the root user"},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c.Context, env.cfg, env.logger)
		if err != nil {
			return err
		}

		svcOpts := []board.Option{board.WithLogger(env.logger)}
		if env.cfg.MetricsEnabled {
			m := retry.NewMetrics("taskboard")
			if err := m.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			svcOpts = append(svcOpts, board.WithMetrics(m))
		}

		company, user, err := board.NewService(st, svcOpts...).CreateCompany(c.Context, c.String("company"), board.UserProfile{
			Subject: c.String("root-sub"),
			Name:    c.String("root-name"),
			Email:   c.String("root-email"),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "company %s (%s) created, root user %s\n", company.ID, company.Name, user.Subject)
		return nil
	},
}

var getCommand = &cli.Command{
	Name:  "get",
	Usage: "dump one item",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "item-id", Required: true},
		&cli.StringFlag{Name: "belongs-to", Required: true},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c.Context, env.cfg, env.logger)
		if err != nil {
			return err
		}

		item, err := st.Get(c.Context, store.Key{ItemID: c.String("item-id"), BelongsTo: c.String("belongs-to")})
		if err != nil {
			return err
		}
		spew.Fdump(c.App.Writer, item)
		return nil
	},
}

var childrenCommand = &cli.Command{
	Name:  "children",
	Usage: "list the children of a parent, one page at a time",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "parent", Required: true},
		&cli.StringFlag{Name: "prefix"},
		&cli.IntFlag{Name: "limit", Usage: "page size, 0 lists everything", Value: 25},
		&cli.StringFlag{Name: "cursor", Usage: "cursor printed by the previous page"},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c.Context, env.cfg, env.logger)
		if err != nil {
			return err
		}

		page, err := st.QueryChildren(c.Context, store.Query{
			Parent: c.String("parent"),
			Prefix: c.String("prefix"),
			Limit:  c.Int("limit"),
			Cursor: c.String("cursor"),
		})
		if err != nil {
			return err
		}

		for _, item := range page.Items {
			fmt.Fprintln(c.App.Writer, store.Attr(item, store.ItemIDAttr))
		}
		if page.NextCursor != "" {
			fmt.Fprintf(c.App.Writer, "next cursor: %s\n", page.NextCursor)
		}
		env.logger.Debug("Listed children", zap.String("parent", c.String("parent")), zap.Int("count", len(page.Items)))
		return nil
	},
}

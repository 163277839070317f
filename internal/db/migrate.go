package db

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "username", Type: field.TypeString, Unique: true, Size: 150},
		{Name: "password_hash", Type: field.TypeString, Size: 200},
		{Name: "is_staff", Type: field.TypeBool, Default: false},
		{Name: "date_joined", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}
	// GroupsColumns holds the columns for the "groups" table.
	GroupsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "title", Type: field.TypeString, Size: 200},
		{Name: "slug", Type: field.TypeString, Unique: true, Size: 50},
		{Name: "description", Type: field.TypeString, Size: 2147483647},
	}
	// GroupsTable holds the schema information for the "groups" table.
	GroupsTable = &schema.Table{
		Name:       "groups",
		Columns:    GroupsColumns,
		PrimaryKey: []*schema.Column{GroupsColumns[0]},
	}
	// PostsColumns holds the columns for the "posts" table.
	PostsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "pub_date", Type: field.TypeTime},
		{Name: "author_id", Type: field.TypeInt64},
		{Name: "group_id", Type: field.TypeInt64, Nullable: true},
	}
	// PostsTable holds the schema information for the "posts" table.
	// Deleting an author deletes their posts; deleting a group detaches them.
	PostsTable = &schema.Table{
		Name:       "posts",
		Columns:    PostsColumns,
		PrimaryKey: []*schema.Column{PostsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "posts_users_posts",
				Columns:    []*schema.Column{PostsColumns[3]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "posts_groups_posts",
				Columns:    []*schema.Column{PostsColumns[4]},
				RefColumns: []*schema.Column{GroupsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "post_pub_date_id",
				Unique:  false,
				Columns: []*schema.Column{PostsColumns[2], PostsColumns[0]},
			},
			{
				Name:    "post_author_id",
				Unique:  false,
				Columns: []*schema.Column{PostsColumns[3]},
			},
			{
				Name:    "post_group_id",
				Unique:  false,
				Columns: []*schema.Column{PostsColumns[4]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		GroupsTable,
		PostsTable,
	}
)

func init() {
	PostsTable.ForeignKeys[0].RefTable = UsersTable
	PostsTable.ForeignKeys[1].RefTable = GroupsTable
}

// Migrate creates or upgrades the record store tables.
func Migrate(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("db/migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("db/migrate: %w", err)
	}
	dbLogger.Sugar().Debugf("schema migrated (%d tables)", len(Tables))
	return nil
}

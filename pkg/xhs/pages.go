package xhs

import (
	"context"
	"strconv"

	"xhstoolbox/pkg/pager"
)

// FeedPages adapts HomeFeed to a pager source
func (c *Client) FeedPages(category string, num int) pager.FetchFunc[NoteItem] {
	return func(ctx context.Context, cursor string) (pager.Page[NoteItem], error) {
		page, err := c.HomeFeed(ctx, category, cursor, num)
		if err != nil {
			return pager.Page[NoteItem]{}, err
		}
		return pager.Page[NoteItem]{Items: page.Items, Cursor: page.Cursor, HasMore: page.HasMore}, nil
	}
}

// CommentPages adapts NoteComments to a pager source
func (c *Client) CommentPages(noteID string) pager.FetchFunc[Comment] {
	return func(ctx context.Context, cursor string) (pager.Page[Comment], error) {
		page, err := c.NoteComments(ctx, noteID, cursor)
		if err != nil {
			return pager.Page[Comment]{}, err
		}
		return pager.Page[Comment]{Items: page.Comments, Cursor: page.Cursor, HasMore: page.HasMore}, nil
	}
}

// NotificationPages adapts a notification feed to a pager source
func (c *Client) NotificationPages(kind NotificationKind) pager.FetchFunc[Notification] {
	return func(ctx context.Context, cursor string) (pager.Page[Notification], error) {
		page, err := c.Notifications(ctx, kind, cursor)
		if err != nil {
			return pager.Page[Notification]{}, err
		}
		return pager.Page[Notification]{Items: page.Items, Cursor: page.Cursor, HasMore: page.HasMore}, nil
	}
}

// SearchPages adapts SearchNotes to a pager source. Search is numbered, so
// the cursor carries the next page number.
func (c *Client) SearchPages(params SearchParams) pager.FetchFunc[NoteItem] {
	return func(ctx context.Context, cursor string) (pager.Page[NoteItem], error) {
		p := params
		p.Page = 1
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return pager.Page[NoteItem]{}, err
			}
			p.Page = n
		}

		result, err := c.SearchNotes(ctx, p)
		if err != nil {
			return pager.Page[NoteItem]{}, err
		}
		next := ""
		if result.HasMore {
			next = strconv.Itoa(p.Page + 1)
		}
		return pager.Page[NoteItem]{Items: result.Items, Cursor: next, HasMore: result.HasMore}, nil
	}
}

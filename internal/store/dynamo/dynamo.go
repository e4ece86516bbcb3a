// Package dynamo implements the store interfaces on DynamoDB. One table per
// record collection; owner scoping is enforced with condition expressions on
// writes and an owner check after point reads. Each single-item write is
// atomic; nothing here spans items transactionally.
package dynamo

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Secondary index names. These are provisioned at deployment time:
//   - Users:        email-index        (pk email)
//   - Folders:      owner-parent-index (pk user_id, sk parent_id)
//   - Files:        owner-folder-index (pk user_id, sk folder_id)
//   - ActivityLogs: owner-time-index   (pk user_id, sk ts)
const (
	emailIndex       = "email-index"
	ownerParentIndex = "owner-parent-index"
	ownerFolderIndex = "owner-folder-index"
	ownerTimeIndex   = "owner-time-index"
)

// rootSentinel stands in for empty placement, because GSI key attributes
// cannot hold the empty string. The mapping is local to this package; the
// rest of the service sees "" for root.
const rootSentinel = "root"

// Tables names the four collections.
type Tables struct {
	Users    string
	Folders  string
	Files    string
	Activity string
}

// Store provides the per-collection implementations over one client.
type Store struct {
	client *dynamodb.Client
	tables Tables
}

func New(client *dynamodb.Client, tables Tables) *Store {
	return &Store{client: client, tables: tables}
}

func (s *Store) Users() *UserStore      { return &UserStore{s} }
func (s *Store) Folders() *FolderStore  { return &FolderStore{s} }
func (s *Store) Files() *FileStore      { return &FileStore{s} }
func (s *Store) Activity() *ActivityLog { return &ActivityLog{s} }

func toPlacement(id string) string {
	if id == "" {
		return rootSentinel
	}
	return id
}

func fromPlacement(id string) string {
	if id == rootSentinel {
		return ""
	}
	return id
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

package chat

import (
	"errors"
	"sort"
	"time"

	"github.com/plazachat/dm_backend/models"
	"gorm.io/gorm"
)

// Service owns direct-message rooms: it creates them idempotently per user
// pair and gates every read and write on a membership entry.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RoomView is everything a member sees when opening a room: the thread in
// creation order and the identity of the other member.
type RoomView struct {
	Room        models.Room      `json:"room"`
	Counterpart models.User      `json:"counterpart"`
	Messages    []models.Message `json:"messages"`
}

// RoomSummary is one line of a user's room list.
type RoomSummary struct {
	Room        models.Room     `json:"room"`
	Counterpart models.User     `json:"counterpart"`
	LastMessage *models.Message `json:"last_message,omitempty"`
	LastReadAt  time.Time       `json:"last_read_at"`
	UnreadCount int64           `json:"unread_count"`
}

// CreateOrGetRoom resolves the single room for the (requester, counterpart)
// pair, creating it together with both entries if it does not exist yet.
// Calling it again with the same pair, or with the resulting room id, returns
// the same id and creates nothing. A roomID of zero means "no existing room".
// The second return value reports whether this call created the room.
func (s *Service) CreateOrGetRoom(userID, roomID, counterpartID uint) (uint, bool, error) {
	if roomID != 0 {
		var room models.Room
		err := s.db.First(&room, roomID).Error
		if err == nil {
			// Existing room: idempotent get, but only for a member.
			var entry models.Entry
			if err := s.db.Where("room_id = ? AND user_id = ?", room.ID, userID).
				First(&entry).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return 0, false, ErrRoomAccess
				}
				return 0, false, err
			}
			return room.ID, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, err
		}
		// Stale id, fall through to pair resolution.
	}

	if counterpartID == 0 || counterpartID == userID {
		return 0, false, ErrInvalidCounterpart
	}
	var counterpart models.User
	if err := s.db.First(&counterpart, counterpartID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, ErrInvalidCounterpart
		}
		return 0, false, err
	}

	id, created, err := s.openRoom(userID, counterpartID)
	if err != nil {
		// A concurrent creator may have won the unique pair_key index.
		// One lookup converges both callers on the same room.
		var room models.Room
		if lookupErr := s.db.Where("pair_key = ?", models.PairKey(userID, counterpartID)).
			First(&room).Error; lookupErr == nil {
			return room.ID, false, nil
		}
		return 0, false, err
	}
	return id, created, nil
}

// openRoom finds or creates the pair's room. Room and both entries are
// written in one transaction so a room is never observable with fewer than
// two members.
func (s *Service) openRoom(userID, counterpartID uint) (uint, bool, error) {
	key := models.PairKey(userID, counterpartID)

	var id uint
	var created bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		res := tx.Where("pair_key = ?", key).First(&room)
		if res.Error == nil {
			id = room.ID
			return nil
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		room = models.Room{PairKey: key}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		now := time.Now()
		entries := []models.Entry{
			{RoomID: room.ID, UserID: userID, LastReadAt: now},
			{RoomID: room.ID, UserID: counterpartID, LastReadAt: now},
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}

		id = room.ID
		created = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// RoomView returns the room's messages in creation order plus the counterpart
// member. Non-members are denied before anything about the room is revealed.
func (s *Service) RoomView(roomID, userID uint) (*RoomView, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	var entries []models.Entry
	if err := s.db.Where("room_id = ?", roomID).Find(&entries).Error; err != nil {
		return nil, err
	}

	member := false
	var counterpartID uint
	for _, e := range entries {
		if e.UserID == userID {
			member = true
		} else {
			counterpartID = e.UserID
		}
	}
	if !member {
		return nil, ErrRoomAccess
	}
	if len(entries) != 2 {
		return nil, ErrRoomCorrupt
	}

	var counterpart models.User
	if err := s.db.First(&counterpart, counterpartID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomCorrupt
		}
		return nil, err
	}

	messages, err := s.roomMessages(roomID)
	if err != nil {
		return nil, err
	}

	return &RoomView{Room: room, Counterpart: counterpart, Messages: messages}, nil
}

// Messages returns the room's thread in creation order, membership-gated.
func (s *Service) Messages(roomID, userID uint) ([]models.Message, error) {
	if err := s.requireEntry(roomID, userID); err != nil {
		return nil, err
	}
	return s.roomMessages(roomID)
}

func (s *Service) roomMessages(roomID uint) ([]models.Message, error) {
	var messages []models.Message
	if err := s.db.Where("room_id = ?", roomID).
		Order("created_at ASC").
		Preload("User").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// PostMessage appends a message to the room on behalf of a member.
func (s *Service) PostMessage(userID, roomID uint, content string) (*models.Message, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.requireEntry(roomID, userID); err != nil {
		return nil, err
	}

	message := models.Message{
		Content: content,
		RoomID:  roomID,
		UserID:  userID,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}
	if err := s.db.Preload("User").First(&message, message.ID).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListRooms returns every room the user belongs to, newest activity first,
// with counterpart, last message and unread count per room.
func (s *Service) ListRooms(userID uint) ([]RoomSummary, error) {
	var entries []models.Entry
	if err := s.db.Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(entries))
	for _, entry := range entries {
		var room models.Room
		if err := s.db.First(&room, entry.RoomID).Error; err != nil {
			return nil, err
		}

		var other models.Entry
		if err := s.db.Where("room_id = ? AND user_id <> ?", entry.RoomID, userID).
			First(&other).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRoomCorrupt
			}
			return nil, err
		}
		var counterpart models.User
		if err := s.db.First(&counterpart, other.UserID).Error; err != nil {
			return nil, err
		}

		summary := RoomSummary{
			Room:        room,
			Counterpart: counterpart,
			LastReadAt:  entry.LastReadAt,
		}

		var last models.Message
		err := s.db.Where("room_id = ?", entry.RoomID).
			Order("created_at DESC").
			Preload("User").
			First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if err := s.db.Model(&models.Message{}).
			Where("room_id = ? AND created_at > ?", entry.RoomID, entry.LastReadAt).
			Count(&summary.UnreadCount).Error; err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

func lastActivity(s RoomSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.Room.CreatedAt
}

// MarkRead records that the user has seen the room up to now.
func (s *Service) MarkRead(roomID, userID uint) error {
	res := s.db.Model(&models.Entry{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomAccess
	}
	return nil
}

// IsMember reports whether the user holds an entry for the room.
func (s *Service) IsMember(roomID, userID uint) (bool, error) {
	err := s.requireEntry(roomID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrRoomAccess) {
		return false, nil
	}
	return false, err
}

func (s *Service) requireEntry(roomID, userID uint) error {
	var entry models.Entry
	if err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomAccess
		}
		return err
	}
	return nil
}

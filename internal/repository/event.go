package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/party-market/internal/errors"
	"github.com/wfunc/party-market/internal/models"
	"gorm.io/gorm"
)

// EventRepository 事件仓储接口
type EventRepository interface {
	BaseRepository
	// Create 创建事件，同一房间同一回合只允许一个事件
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindByRoomRound(ctx context.Context, roomID uint, round int) (*models.Event, error)
	FindByRoom(ctx context.Context, roomID uint) ([]*models.Event, error)
	// MarkRevealed 标记事件已揭示，重复揭示不报错
	MarkRevealed(ctx context.Context, eventID uint) error
}

// eventRepo 事件仓储实现
type eventRepo struct {
	*BaseRepo
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建事件
// 依赖 (room_id, round) 唯一索引兜底重复生成
func (r *eventRepo) Create(ctx context.Context, event *models.Event) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Newf(apperrors.ErrEventExists, "第 %d 回合已存在事件", event.Round)
		}
		return err
	}
	return nil
}

// FindByID 根据ID查找事件
func (r *eventRepo) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrEventNotFound, "事件不存在")
		}
		return nil, err
	}
	return &event, nil
}

// FindByRoomRound 查找房间某回合的事件
func (r *eventRepo) FindByRoomRound(ctx context.Context, roomID uint, round int) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND round = ?", roomID, round).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrEventNotFound, "第 %d 回合没有事件", round)
		}
		return nil, err
	}
	return &event, nil
}

// FindByRoom 查找房间全部事件，按回合升序
func (r *eventRepo) FindByRoom(ctx context.Context, roomID uint) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("round ASC").
		Find(&events).Error
	return events, err
}

// MarkRevealed 标记事件已揭示
func (r *eventRepo) MarkRevealed(ctx context.Context, eventID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("revealed", true).Error
}

// 文件: pkg/notify/model.go
// 站内通知

package notify

import "time"

// SubjectNotifications NATS 主题
const SubjectNotifications = "notifications"

type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID    int64     `gorm:"column:user_id;index" json:"user_id"`
	Title     string    `gorm:"column:title;type:varchar(128)" json:"title"`
	Body      string    `gorm:"column:body;type:varchar(1024)" json:"body"`
	Read      bool      `gorm:"column:is_read" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// 合成数据用的通知模板
var templates = []struct{ Title, Body string }{
	{"系统公告", "平台将于本周末进行例行维护，届时部分功能暂停使用。"},
	{"产品上新", "新一期稳健型基金产品已上线，欢迎关注。"},
	{"风险提示", "杠杆合约风险较高，请合理控制仓位。"},
	{"交易提醒", "您有订单已完成结算，请前往订单中心查看。"},
	{"活动通知", "新股申购通道已开放，详情请查看产品页面。"},
}

// Templates 模板数量
func Templates() int {
	return len(templates)
}

// FromTemplate 按下标生成通知 (下标越界时取模)
func FromTemplate(id, userID int64, idx int, at time.Time) *Notification {
	t := templates[((idx%len(templates))+len(templates))%len(templates)]
	return &Notification{
		ID:        id,
		UserID:    userID,
		Title:     t.Title,
		Body:      t.Body,
		CreatedAt: at,
	}
}

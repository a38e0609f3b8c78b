package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// CourseProgress tracks which chapters of a course the user has completed.
// At most one entry per course id; completed chapter ids never repeat.
type CourseProgress struct {
	CourseID          bson.ObjectID   `bson:"course_id" json:"courseId"`
	CompletedChapters []bson.ObjectID `bson:"completed_chapters" json:"completedChapters"`
}

type Notification struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Message   string        `bson:"message" json:"message"`
	Link      string        `bson:"link,omitempty" json:"link,omitempty"`
	Module    bson.ObjectID `bson:"module,omitempty" json:"module,omitempty"`
	Course    bson.ObjectID `bson:"course,omitempty" json:"course,omitempty"`
	Read      bool          `bson:"read" json:"read"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

type User struct {
	ID                bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Email             string           `bson:"email" json:"email"`
	Password          string           `bson:"password" json:"-"`
	Name              string           `bson:"name" json:"name"`
	Role              string           `bson:"role" json:"role"`
	Avatar            string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Progress          []CourseProgress `bson:"progress" json:"progress"`
	CompletedCourses  []bson.ObjectID  `bson:"completed_courses" json:"completedCourses"`
	Badges            []bson.ObjectID  `bson:"badges" json:"badges"`
	SubscribedModules []bson.ObjectID  `bson:"subscribed_modules" json:"subscribedModules"`
	Notifications     []Notification   `bson:"notifications" json:"notifications"`
	CreatedAt         time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `bson:"updated_at" json:"updatedAt"`
}

func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleTeacher
}

// ProgressFor returns the progress entry for courseID, or nil if the user
// has not touched that course yet. The returned pointer aliases u.Progress.
func (u *User) ProgressFor(courseID bson.ObjectID) *CourseProgress {
	for i := range u.Progress {
		if u.Progress[i].CourseID == courseID {
			return &u.Progress[i]
		}
	}
	return nil
}

func (u *User) HasCompletedCourse(courseID bson.ObjectID) bool {
	for _, id := range u.CompletedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

func (u *User) HasBadge(badgeID bson.ObjectID) bool {
	for _, id := range u.Badges {
		if id == badgeID {
			return true
		}
	}
	return false
}

func (u *User) IsSubscribed(moduleID bson.ObjectID) bool {
	for _, id := range u.SubscribedModules {
		if id == moduleID {
			return true
		}
	}
	return false
}

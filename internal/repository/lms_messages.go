package repository

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Recipients lists the students and courses an instructor can address.
func (s *LMSStore) Recipients(instructorID models.ID) models.Recipients {
	students := s.Students(instructorID, StudentFilter{})
	for i := range students {
		students[i].Courses = nil
	}
	return models.Recipients{
		Students: students,
		Courses:  s.InstructorCourses(instructorID, CatalogFilter{}),
	}
}

// SendMessage stores a private message or an announcement from an
// instructor. Announcements without a course address every owned course.
func (s *LMSStore) SendMessage(senderID models.ID, draft models.MessageDraft) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := models.Message{
		SenderID: senderID,
		Type:     draft.Type,
		Content:  strings.TrimSpace(draft.Content),
	}
	switch draft.Type {
	case models.MessagePrivate:
		if draft.ReceiverID == nil || draft.ReceiverID.Empty() {
			return models.Message{}, appErrors.Validation("Message could not be sent.", map[string]string{"receiver_id": "is required for private messages"})
		}
		if _, ok := s.users[*draft.ReceiverID]; !ok {
			return models.Message{}, notFound("Recipient")
		}
		receiver := *draft.ReceiverID
		msg.ReceiverID = &receiver
	case models.MessageAnnouncement:
		if draft.CourseID != nil && !draft.CourseID.Empty() {
			if _, err := s.ownedCourseLocked(senderID, *draft.CourseID); err != nil {
				return models.Message{}, err
			}
			course := *draft.CourseID
			msg.CourseID = &course
		}
	default:
		return models.Message{}, appErrors.Validation("Message could not be sent.", map[string]string{"message_type": "must be one of private, announcement"})
	}
	return s.appendLocked(msg), nil
}

// DirectMessage stores a private message between any two users.
func (s *LMSStore) DirectMessage(senderID models.ID, dm models.DirectMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[dm.ReceiverID]; !ok {
		return models.Message{}, notFound("Recipient")
	}
	if dm.ReceiverID == senderID {
		return models.Message{}, appErrors.Validation("Message could not be sent.", map[string]string{"receiver_id": "cannot be yourself"})
	}
	receiver := dm.ReceiverID
	return s.appendLocked(models.Message{
		SenderID:   senderID,
		ReceiverID: &receiver,
		Type:       models.MessagePrivate,
		Content:    strings.TrimSpace(dm.Content),
	}), nil
}

func (s *LMSStore) appendLocked(msg models.Message) models.Message {
	msg.MessageID = models.ID(uuid.NewString())
	msg.Timestamp = s.now().UTC()
	msg.SenderName = s.displayNameLocked(msg.SenderID)
	s.messages = append(s.messages, msg)
	return msg
}

// InstructorMessages lists messages sent or received by the instructor,
// newest first.
func (s *LMSStore) InstructorMessages(instructorID models.ID, search string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		received := m.ReceiverID != nil && *m.ReceiverID == instructorID
		if m.SenderID != instructorID && !received {
			continue
		}
		if search != "" && !containsFold(m.Content, search) && !containsFold(m.SenderName, search) {
			continue
		}
		out = append(out, m)
	}
	newestFirst(out)
	return out
}

// StudentMessages lists private messages to the student and announcements
// for the student's courses, newest first.
func (s *LMSStore) StudentMessages(studentID models.ID) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		switch m.Type {
		case models.MessagePrivate:
			if m.ReceiverID == nil || *m.ReceiverID != studentID {
				continue
			}
		case models.MessageAnnouncement:
			if m.CourseID != nil {
				if _, ok := s.enrollments[pairKey(studentID, *m.CourseID)]; !ok {
					continue
				}
			} else if !s.teachesLocked(m.SenderID, studentID) {
				continue
			}
		}
		out = append(out, m)
	}
	newestFirst(out)
	return out
}

func newestFirst(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.After(msgs[j].Timestamp) })
}

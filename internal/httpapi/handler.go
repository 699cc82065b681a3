package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qrattend/internal/admin"
	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/config"
	"qrattend/internal/identity"
	"qrattend/internal/notify"
	"qrattend/internal/qrcode"
	"qrattend/internal/queue"
)

var scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qrattend_scans_total",
	Help: "Scan outcomes by result.",
}, []string{"outcome"})

// Handler wires the HTTP boundary to the core services.
type Handler struct {
	cfg     config.App
	ids     *identity.Repository
	machine *attendance.Machine
	admin   *admin.Service
	q       queue.Queue
	loc     *time.Location
}

// New creates the handler set.
func New(cfg config.App, ids *identity.Repository, machine *attendance.Machine, adm *admin.Service, q queue.Queue, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{cfg: cfg, ids: ids, machine: machine, admin: adm, q: q, loc: loc}
}

// Register mounts all API routes.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/attendance/scan", h.Scan)

	authed := api.Group("", auth.UserAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	authed.GET("/attendance", h.ListAttendance)
	authed.PUT("/attendance/:id", h.UpdateRecord)
	authed.DELETE("/attendance/:id", h.DeleteRecord)

	authed.GET("/students", h.ListStudents)
	authed.GET("/students/:id", h.GetStudent)
	authed.PUT("/students/:id", h.UpdateStudent)
	authed.DELETE("/students/:id", h.DeleteStudent)
	authed.GET("/students/:id/qrcode", h.StudentQRCode)

	authed.POST("/teachers", h.CreateTeacher)
	authed.GET("/teachers", h.ListTeachers)
	authed.GET("/teachers/:id", h.GetTeacher)
	authed.PUT("/teachers/:id", h.UpdateTeacher)
	authed.DELETE("/teachers/:id", h.DeleteTeacher)

	authed.GET("/stats", h.DBStats)
}

// fail translates core errors into the boundary's status codes.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "teacher access required"})
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, identity.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, attendance.ErrIntegrity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown student reference"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ---------- Accounts ----------

type signupRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Section    string `json:"section"`
	GradeLevel string `json:"grade_level"`

	GuardianName  string `json:"guardian_name"`
	GuardianEmail string `json:"guardian_email"`
	GuardianPhone string `json:"guardian_phone"`
}

// Signup registers a new student account.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password hashing failed"})
		return
	}

	student := identity.Student{
		FullName:         req.Name,
		Email:            req.Email,
		PasswordHash:     hash,
		Section:          req.Section,
		GradeLevel:       req.GradeLevel,
		GuardianName:     req.GuardianName,
		GuardianEmail:    req.GuardianEmail,
		GuardianPhone:    req.GuardianPhone,
		NotifyOnCheckin:  true,
		NotifyOnCheckout: true,
	}
	if err := h.ids.CreateStudent(c.Request.Context(), &student); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": student})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates either role by email; teachers take precedence when
// the same address exists in both tables.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var (
		subject string
		name    string
		role    identity.Role
		hash    string
	)
	if t, err := h.ids.GetTeacherByEmail(ctx, req.Email); err == nil {
		subject, name, role, hash = t.ID, t.FullName, identity.RoleTeacher, t.PasswordHash
	} else if s, err := h.ids.GetStudentByEmail(ctx, req.Email); err == nil {
		subject, name, role, hash = s.ID, s.FullName, identity.RoleStudent, s.PasswordHash
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !auth.CheckPassword(hash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := auth.Issue(subject, role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_at":   exp.Unix(),
		"role":         role,
		"id":           subject,
		"name":         name,
	})
}

// ---------- Scanning ----------

type scanRequest struct {
	StudentID string `json:"student_id"`
	QRData    string `json:"qr_data"`
}

// Scan records an attendance event. Authorized for teachers, or for kiosk
// scanners presenting the shared scanner secret. The timestamp is assigned
// here at receipt; clients cannot backdate.
func (h *Handler) Scan(c *gin.Context) {
	authorized := false
	if secret := c.GetHeader("X-Scanner-Secret"); secret != "" && secret == h.cfg.ScannerSecret {
		authorized = true
	} else if authz := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		if claims, err := auth.Parse(tokenStr, h.cfg.JWTSigningKey, h.cfg.JWTIssuer); err == nil && claims.Role == identity.RoleTeacher {
			authorized = true
		}
	}
	if !authorized {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "teacher token or scanner secret required"})
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	studentID := req.StudentID
	if studentID == "" && req.QRData != "" {
		id, err := qrcode.DecodeToken(req.QRData)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid QR payload"})
			return
		}
		studentID = id
	}
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id or qr_data required"})
		return
	}

	now := time.Now().In(h.loc)
	rec, err := h.machine.Scan(c.Request.Context(), studentID, now)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrDuplicateScan):
			scansTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusConflict, gin.H{
				"error":  "already checked out today",
				"reason": "duplicate_scan",
			})
		case errors.Is(err, attendance.ErrIntegrity):
			scansTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown student"})
		default:
			scansTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	scansTotal.WithLabelValues(string(rec.Status)).Inc()

	h.publishNotification(c, rec)

	c.JSON(http.StatusCreated, gin.H{
		"record":    rec,
		"status":    rec.Status,
		"timestamp": rec.Timestamp,
	})
}

// publishNotification queues a guardian email when the student opted in.
// Delivery is best effort and never fails the scan.
func (h *Handler) publishNotification(c *gin.Context, rec attendance.Record) {
	if h.q == nil {
		return
	}
	student, err := h.ids.GetStudent(c.Request.Context(), rec.StudentID)
	if err != nil || student.GuardianEmail == "" {
		return
	}
	if rec.Status == attendance.StatusCheckIn && !student.NotifyOnCheckin {
		return
	}
	if rec.Status == attendance.StatusCheckOut && !student.NotifyOnCheckout {
		return
	}
	msg, err := notify.Encode(notify.Event{
		StudentName:   student.FullName,
		GuardianName:  student.GuardianName,
		GuardianEmail: student.GuardianEmail,
		Status:        rec.Status,
		Timestamp:     rec.Timestamp,
	})
	if err != nil {
		return
	}
	if err := h.q.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("notification publish failed: %v", err)
	}
}

// ---------- Attendance administration ----------

// ListAttendance returns ledger rows joined with identity, optionally
// narrowed to one day (?date=YYYY-MM-DD).
func (h *Handler) ListAttendance(c *gin.Context) {
	var day *time.Time
	if v := c.Query("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = &parsed
	}
	records, err := h.admin.ListAttendance(c.Request.Context(), auth.CallerRole(c), day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

type recordUpdateRequest struct {
	Timestamp *time.Time `json:"timestamp"`
	Status    *string    `json:"status"`
}

// UpdateRecord applies an administrative correction to a ledger row.
func (h *Handler) UpdateRecord(c *gin.Context) {
	var req recordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	upd := attendance.RecordUpdate{Timestamp: req.Timestamp}
	if req.Status != nil {
		status := attendance.Status(*req.Status)
		if status != attendance.StatusCheckIn && status != attendance.StatusCheckOut {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be check_in or check_out"})
			return
		}
		upd.Status = &status
	}
	rec, err := h.admin.UpdateRecord(c.Request.Context(), auth.CallerRole(c), c.Param("id"), upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// DeleteRecord removes a ledger row.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.admin.DeleteRecord(c.Request.Context(), auth.CallerRole(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

// ---------- Students ----------

// ListStudents returns all students.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.admin.ListStudents(c.Request.Context(), auth.CallerRole(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetStudent returns one student.
func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.admin.GetStudent(c.Request.Context(), auth.CallerRole(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

type studentUpdateRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Section          *string `json:"section"`
	GradeLevel       *string `json:"grade_level"`
	GuardianName     *string `json:"guardian_name"`
	GuardianEmail    *string `json:"guardian_email"`
	GuardianPhone    *string `json:"guardian_phone"`
	NotifyOnCheckin  *bool   `json:"notify_on_checkin"`
	NotifyOnCheckout *bool   `json:"notify_on_checkout"`
}

// UpdateStudent applies partial updates.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req studentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	student, err := h.admin.UpdateStudent(c.Request.Context(), auth.CallerRole(c), c.Param("id"), identity.StudentUpdate{
		FullName:         req.Name,
		Email:            req.Email,
		Section:          req.Section,
		GradeLevel:       req.GradeLevel,
		GuardianName:     req.GuardianName,
		GuardianEmail:    req.GuardianEmail,
		GuardianPhone:    req.GuardianPhone,
		NotifyOnCheckin:  req.NotifyOnCheckin,
		NotifyOnCheckout: req.NotifyOnCheckout,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// DeleteStudent removes a student; their attendance history is preserved.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.admin.DeleteStudent(c.Request.Context(), auth.CallerRole(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "student deleted"})
}

// StudentQRCode renders a student's badge as PNG. Teachers can fetch any
// badge; a student can fetch only their own.
func (h *Handler) StudentQRCode(c *gin.Context) {
	id := c.Param("id")
	claims, ok := auth.CallerClaims(c)
	if !ok || (claims.Role != identity.RoleTeacher && claims.Subject != id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	student, err := h.ids.GetStudent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	png, err := qrcode.PNG(student.ID, student.Email, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr encode failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Teachers ----------

type teacherCreateRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Section    string `json:"section"`
	GradeLevel string `json:"grade_level"`
}

// CreateTeacher registers a new teacher account; teacher-only.
func (h *Handler) CreateTeacher(c *gin.Context) {
	var req teacherCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password hashing failed"})
		return
	}
	teacher := identity.Teacher{
		FullName:     req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Section:      req.Section,
		GradeLevel:   req.GradeLevel,
	}
	if err := h.admin.CreateTeacher(c.Request.Context(), auth.CallerRole(c), &teacher); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"teacher": teacher})
}

// ListTeachers returns all teachers.
func (h *Handler) ListTeachers(c *gin.Context) {
	teachers, err := h.admin.ListTeachers(c.Request.Context(), auth.CallerRole(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

// GetTeacher returns one teacher.
func (h *Handler) GetTeacher(c *gin.Context) {
	teacher, err := h.admin.GetTeacher(c.Request.Context(), auth.CallerRole(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": teacher})
}

type teacherUpdateRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Section    *string `json:"section"`
	GradeLevel *string `json:"grade_level"`
}

// UpdateTeacher applies partial updates.
func (h *Handler) UpdateTeacher(c *gin.Context) {
	var req teacherUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	teacher, err := h.admin.UpdateTeacher(c.Request.Context(), auth.CallerRole(c), c.Param("id"), identity.TeacherUpdate{
		FullName:   req.Name,
		Email:      req.Email,
		Section:    req.Section,
		GradeLevel: req.GradeLevel,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": teacher})
}

// DeleteTeacher removes a teacher.
func (h *Handler) DeleteTeacher(c *gin.Context) {
	if err := h.admin.DeleteTeacher(c.Request.Context(), auth.CallerRole(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "teacher deleted"})
}

// ---------- Stats ----------

// DBStats returns read-through store cardinalities.
func (h *Handler) DBStats(c *gin.Context) {
	stats, err := h.admin.DBStats(c.Request.Context(), auth.CallerRole(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

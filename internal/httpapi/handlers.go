package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filedock/filedock/internal/file"
	"github.com/filedock/filedock/internal/model"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) handleLogin(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.auth.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) handleLogout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type changePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *handler) handleChangePassword(c *gin.Context) {
	var payload changePasswordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), bearerToken(c), payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *handler) handleSeedAdmin(c *gin.Context) {
	created, err := h.auth.SeedAdmin(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

type createUserPayload struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Role      string   `json:"role"`
	FolderIDs []string `json:"folderIds"`
}

func (h *handler) handleCreateUser(c *gin.Context) {
	var payload createUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.users.Create(c.Request.Context(), h.principal(c),
		payload.Username, payload.Password, model.Role(payload.Role), payload.FolderIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": payload.Username})
}

func (h *handler) handleListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), h.principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateUserPayload struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h *handler) handleUpdateUser(c *gin.Context) {
	var payload updateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.users.Update(c.Request.Context(), h.principal(c),
		c.Param("username"), model.Role(payload.Role), payload.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

func (h *handler) handleDeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), h.principal(c), c.Param("username")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type createFolderPayload struct {
	FolderName     string `json:"folderName"`
	ParentFolderID string `json:"parentFolderId"`
}

func (h *handler) handleCreateFolder(c *gin.Context) {
	var payload createFolderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.folders.Create(c.Request.Context(), h.principal(c),
		payload.FolderName, payload.ParentFolderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) handleListFolders(c *gin.Context) {
	folders, err := h.folders.List(c.Request.Context(), h.principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *handler) handleDeleteFolder(c *gin.Context) {
	if err := h.folders.Delete(c.Request.Context(), h.principal(c), c.Param("folderId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder deleted"})
}

type assignmentPayload struct {
	Username  string   `json:"username"`
	FolderIDs []string `json:"folderIds"`
}

func (h *handler) handleAssignFolders(c *gin.Context) {
	var payload assignmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.folders.Assign(c.Request.Context(), h.principal(c), payload.Username, payload.FolderIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folders assigned"})
}

func (h *handler) handleUnassignFolders(c *gin.Context) {
	var payload assignmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.folders.Unassign(c.Request.Context(), h.principal(c), payload.Username, payload.FolderIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folders unassigned"})
}

func (h *handler) handleListFiles(c *gin.Context) {
	query := file.ListQuery{
		FolderID:  c.Query("folderId"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	files, err := h.files.ListFiles(c.Request.Context(), h.principal(c), query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

type uploadURLPayload struct {
	FolderID string `json:"folderId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

func (h *handler) handleUploadURL(c *gin.Context) {
	var payload uploadURLPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	grant, err := h.files.InitiateUpload(c.Request.Context(), h.principal(c),
		payload.FolderID, payload.FileName, payload.FileSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

type downloadURLPayload struct {
	FolderID      string `json:"folderId"`
	FileName      string `json:"fileName"`
	VersionNumber int    `json:"versionNumber"`
}

func (h *handler) handleDownloadURL(c *gin.Context) {
	var payload downloadURLPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	download, err := h.files.ResolveDownload(c.Request.Context(), h.principal(c),
		payload.FolderID, payload.FileName, payload.VersionNumber)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, download)
}

func (h *handler) handleListVersions(c *gin.Context) {
	versions, err := h.files.ListVersions(c.Request.Context(), h.principal(c),
		c.Param("folderId"), c.Param("fileName"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fileName": c.Param("fileName"),
		"versions": versions,
		"count":    len(versions),
	})
}

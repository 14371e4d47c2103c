package pose

// Connection is one skeleton edge drawn between two landmarks.
type Connection struct {
	From LandmarkType
	To   LandmarkType
}

var connections = []Connection{
	{LeftEar, LeftEyeOuter},
	{LeftEyeOuter, LeftEye},
	{LeftEye, LeftEyeInner},
	{LeftEyeInner, Nose},
	{Nose, RightEyeInner},
	{RightEyeInner, RightEye},
	{RightEye, RightEyeOuter},
	{RightEyeOuter, RightEar},
	{MouthLeft, MouthRight},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{RightShoulder, RightElbow},
	{RightWrist, RightElbow},
	{RightWrist, RightThumb},
	{RightWrist, RightIndexFinger},
	{RightWrist, RightPinkyFinger},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
	{LeftKnee, LeftAnkle},
	{LeftElbow, LeftShoulder},
	{LeftWrist, LeftElbow},
	{LeftWrist, LeftThumb},
	{LeftWrist, LeftIndexFinger},
	{LeftWrist, LeftPinkyFinger},
	{LeftAnkle, LeftHeel},
	{LeftAnkle, LeftToe},
	{RightAnkle, RightHeel},
	{RightAnkle, RightToe},
	{RightHeel, RightToe},
	{LeftHeel, LeftToe},
	{RightIndexFinger, RightPinkyFinger},
	{LeftIndexFinger, LeftPinkyFinger},
}

// Connections returns the skeleton edges in drawing order. The returned
// slice is a copy.
func Connections() []Connection {
	out := make([]Connection, len(connections))
	copy(out, connections)
	return out
}
